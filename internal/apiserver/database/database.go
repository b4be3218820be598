package database

import (
	"context"
	"time"

	"github.com/syncwave/crm/internal/access"
)

// Database defines the methods for database operations.
// Scoped lookups return a not found error for rows outside the scope.
type Database interface {
	access.GrantLookup

	// Close closes the database connection.
	Close() error

	// Transaction runs fn in a transaction carried by the returned context.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	CreateCompany(ctx context.Context, company *Company) error
	GetCompany(ctx context.Context, scope access.Scope, id string) (*Company, error)
	GetMasterCompany(ctx context.Context) (*Company, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	UpdateCompany(ctx context.Context, company *Company) error
	// DeleteCompany removes the company and the grants naming it.
	DeleteCompany(ctx context.Context, id string) error
	CompanyOwnsData(ctx context.Context, companyID string) (bool, error)
	// ListCompanies lists companies in scope with their user counts.
	ListCompanies(ctx context.Context, scope access.Scope, filter CompanyFilter) ([]*Company, error)
	CountCompanyUsers(ctx context.Context, companyID string) (int64, error)

	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, scope access.Scope, filter UserFilter) ([]*User, error)

	CreateGrant(ctx context.Context, grant *CompanyPermission) error
	GetGrant(ctx context.Context, id string) (*CompanyPermission, error)
	UpdateGrant(ctx context.Context, grant *CompanyPermission) error
	DeleteGrant(ctx context.Context, id string) error
	// ListGrants lists grants whose owner or granted company is in scope.
	ListGrants(ctx context.Context, scope access.Scope) ([]*CompanyPermission, error)

	CreateTag(ctx context.Context, tag *Tag) error
	GetTag(ctx context.Context, scope access.Scope, id string) (*Tag, error)
	GetTagByName(ctx context.Context, companyID, name string) (*Tag, error)
	GetTagsByIDs(ctx context.Context, ids []string) ([]*Tag, error)
	UpdateTag(ctx context.Context, tag *Tag) error
	DeleteTag(ctx context.Context, id string) error
	// ListTags lists tags in scope with their contact counts.
	ListTags(ctx context.Context, scope access.Scope, filter TagFilter) ([]*Tag, error)

	// CreateContact inserts the contact and links contact.Tags.
	CreateContact(ctx context.Context, contact *Contact) error
	GetContact(ctx context.Context, scope access.Scope, id string) (*Contact, error)
	GetContactByPhone(ctx context.Context, companyID, phone string) (*Contact, error)
	GetContactsByIDs(ctx context.Context, ids []string) ([]*Contact, error)
	// UpdateContact saves the contact and replaces its tag links with contact.Tags.
	UpdateContact(ctx context.Context, contact *Contact) error
	DeleteContact(ctx context.Context, id string) error
	ListContacts(ctx context.Context, scope access.Scope, filter ContactFilter) ([]*Contact, int64, error)
	AttachTag(ctx context.Context, contactID, tagID string) error
	DetachTag(ctx context.Context, contactID, tagID string) error

	CreateCampaign(ctx context.Context, campaign *Campaign) error
	GetCampaign(ctx context.Context, scope access.Scope, id string) (*Campaign, error)
	UpdateCampaign(ctx context.Context, campaign *Campaign) error
	// DeleteCampaign removes the campaign with its messages and logs. Callers
	// refuse campaigns that still have sending or sent messages.
	DeleteCampaign(ctx context.Context, id string) error
	ListCampaigns(ctx context.Context, scope access.Scope, filter CampaignFilter) ([]*Campaign, error)
	CountCampaignMessages(ctx context.Context, campaignID string, statuses ...MessageStatus) (int64, error)

	CreateMessage(ctx context.Context, message *Message) error
	GetMessage(ctx context.Context, scope access.Scope, id string) (*Message, error)
	UpdateMessage(ctx context.Context, message *Message) error
	DeleteMessage(ctx context.Context, id string) error
	ListMessages(ctx context.Context, scope access.Scope, filter MessageFilter) ([]*Message, error)
	// SetMessageRecipients replaces the recipients and recomputes total_contacts.
	SetMessageRecipients(ctx context.Context, messageID string, contactIDs []string) error
	// MessageRecipients returns recipients ordered by creation time then id.
	MessageRecipients(ctx context.Context, messageID string) ([]*Contact, error)
	// TransitionMessage moves the message to `to` only if its status is one of
	// from, applying fields in the same statement. It reports whether the row changed.
	TransitionMessage(ctx context.Context, id string, from []MessageStatus, to MessageStatus, fields map[string]any) (bool, error)
	UpdateMessageCounters(ctx context.Context, id string, total, sent, failed int) error
	ListDueMessages(ctx context.Context, now time.Time, limit int) ([]*Message, error)
	ListMessagesByStatus(ctx context.Context, status MessageStatus) ([]*Message, error)

	// GetOrCreateMessageLog returns the existing log for (message, contact) or
	// inserts log. The boolean reports whether a row was created.
	GetOrCreateMessageLog(ctx context.Context, log *MessageLog) (*MessageLog, bool, error)
	UpdateMessageLog(ctx context.Context, log *MessageLog) error
	ListMessageLogs(ctx context.Context, messageID string, filter LogFilter) ([]*MessageLog, error)
	// CountMessageLogsByStatus counts logs by status for contacts that are still recipients.
	CountMessageLogsByStatus(ctx context.Context, messageID string) (map[LogStatus]int64, error)

	Stats(ctx context.Context, scope access.Scope) (*Stats, error)
}

// Page limits list results; zero values mean no limit
type Page struct {
	Page     int
	PageSize int
}

type CompanyFilter struct {
	Search     string
	ActiveOnly bool
}

type UserFilter struct {
	CompanyID string
	Search    string
}

type TagFilter struct {
	CompanyID string
	Search    string
}

type ContactFilter struct {
	Page
	CompanyID string
	Search    string
	Active    *bool
	TagID     string
}

type CampaignFilter struct {
	CompanyID  string
	Search     string
	ActiveOnly bool
}

type MessageFilter struct {
	Page
	CompanyID  string
	CampaignID string
	Status     MessageStatus
}

type LogFilter struct {
	Status LogStatus
}
