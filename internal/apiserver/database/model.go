package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/syncwave/crm/internal/access"
	"gorm.io/gorm"
)

// MessageStatus is the lifecycle state of a dispatch job
type MessageStatus string

const (
	MessageDraft     MessageStatus = "draft"
	MessagePending   MessageStatus = "pending"
	MessageSending   MessageStatus = "sending"
	MessageSent      MessageStatus = "sent"
	MessageError     MessageStatus = "error"
	MessageCancelled MessageStatus = "cancelled"
)

// Valid reports whether s is a known message status
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageDraft, MessagePending, MessageSending, MessageSent, MessageError, MessageCancelled:
		return true
	}
	return false
}

// Locked reports whether a message in this state may no longer be edited or deleted
func (s MessageStatus) Locked() bool {
	return s == MessageSending || s == MessageSent
}

// LogStatus is the outcome of a single recipient send
type LogStatus string

const (
	LogPending LogStatus = "pending"
	LogSent    LogStatus = "sent"
	LogError   LogStatus = "error"
)

func newID() string {
	return uuid.NewString()
}

// Company is the tenant root
type Company struct {
	ID        string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string             `json:"name" gorm:"type:varchar(200);not null"`
	Slug      string             `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Type      access.CompanyType `json:"type" gorm:"type:varchar(10);not null;index"`
	CNPJ      *string            `json:"cnpj,omitempty" gorm:"type:varchar(18);uniqueIndex"`
	Email     string             `json:"email" gorm:"type:varchar(254)"`
	Phone     string             `json:"phone" gorm:"type:varchar(20)"`
	Address   string             `json:"address" gorm:"type:text"`
	City      string             `json:"city" gorm:"type:varchar(100)"`
	State     string             `json:"state" gorm:"type:varchar(2)"`
	ZipCode   string             `json:"zipCode" gorm:"type:varchar(10)"`
	IsActive  bool               `json:"isActive" gorm:"not null"`
	UserCount int64              `json:"userCount,omitempty" gorm:"-"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func (c *Company) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// User is an account that belongs to exactly one company
type User struct {
	ID                    string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID             string      `json:"companyId" gorm:"type:varchar(36);not null;index"`
	Username              string      `json:"username" gorm:"type:varchar(150);uniqueIndex;not null"`
	Password              string      `json:"-" gorm:"not null"`
	FirstName             string      `json:"firstName" gorm:"type:varchar(150)"`
	LastName              string      `json:"lastName" gorm:"type:varchar(150)"`
	Email                 string      `json:"email" gorm:"type:varchar(254)"`
	Phone                 string      `json:"phone" gorm:"type:varchar(20)"`
	Role                  access.Role `json:"role" gorm:"type:varchar(20);not null"`
	IsSuperuser           bool        `json:"isSuperuser" gorm:"not null"`
	CanAccessAllCompanies bool        `json:"canAccessAllCompanies" gorm:"not null"`
	IsActive              bool        `json:"isActive" gorm:"not null"`
	LastLogin             *time.Time  `json:"lastLogin,omitempty"`
	CreatedAt             time.Time   `json:"createdAt"`
	UpdatedAt             time.Time   `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return nil
}

// CompanyPermission lets GrantedCompanyID access OwnerCompanyID's resources
type CompanyPermission struct {
	ID               string                `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerCompanyID   string                `json:"ownerCompanyId" gorm:"type:varchar(36);not null;uniqueIndex:idx_grant_triple"`
	GrantedCompanyID string                `json:"grantedCompanyId" gorm:"type:varchar(36);not null;uniqueIndex:idx_grant_triple;index"`
	PermissionType   access.PermissionType `json:"permissionType" gorm:"type:varchar(50);not null;uniqueIndex:idx_grant_triple"`
	IsActive         bool                  `json:"isActive" gorm:"not null"`
	CreatedByID      string                `json:"createdById" gorm:"type:varchar(36);not null"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

func (p *CompanyPermission) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

// Tag labels contacts inside one company
type Tag struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID    string    `json:"companyId" gorm:"type:varchar(36);not null;uniqueIndex:idx_tag_company_name"`
	Name         string    `json:"name" gorm:"type:varchar(50);not null;uniqueIndex:idx_tag_company_name"`
	Color        string    `json:"color" gorm:"type:varchar(7);not null"`
	ContactCount int64     `json:"contactCount" gorm:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (t *Tag) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = newID()
	}
	return nil
}

// Contact is a message recipient
type Contact struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID string    `json:"companyId" gorm:"type:varchar(36);not null;uniqueIndex:idx_contact_company_phone"`
	Name      string    `json:"name" gorm:"type:varchar(150);not null"`
	Phone     string    `json:"phone" gorm:"type:varchar(20);not null;uniqueIndex:idx_contact_company_phone"`
	Email     string    `json:"email" gorm:"type:varchar(254)"`
	IsActive  bool      `json:"isActive" gorm:"not null"`
	Origin    string    `json:"origin" gorm:"type:varchar(50)"`
	Notes     string    `json:"notes" gorm:"type:text"`
	Tags      []Tag     `json:"tags" gorm:"many2many:contact_tags;"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Contact) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// ContactTag is the join row between contacts and tags
type ContactTag struct {
	ContactID string `gorm:"primaryKey;type:varchar(36)"`
	TagID     string `gorm:"primaryKey;type:varchar(36);index"`
}

// Campaign is a reusable message template
type Campaign struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID   string    `json:"companyId" gorm:"type:varchar(36);not null;uniqueIndex:idx_campaign_company_name"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_campaign_company_name"`
	Text        string    `json:"text" gorm:"type:text;not null"`
	IsActive    bool      `json:"isActive" gorm:"not null"`
	CreatedByID string    `json:"createdById" gorm:"type:varchar(36)"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *Campaign) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// Message is one dispatch of a campaign to a set of contacts
type Message struct {
	ID                 string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID          string        `json:"companyId" gorm:"type:varchar(36);not null;index"`
	Name               string        `json:"name" gorm:"type:varchar(150);not null"`
	CampaignID         string        `json:"campaignId" gorm:"type:varchar(36);not null;index"`
	Campaign           *Campaign     `json:"campaign,omitempty" gorm:"foreignKey:CampaignID"`
	Contacts           []Contact     `json:"contacts,omitempty" gorm:"many2many:message_contacts;"`
	Status             MessageStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	TotalContacts      int           `json:"totalContacts" gorm:"not null"`
	TotalSent          int           `json:"totalSent" gorm:"not null"`
	TotalErrors        int           `json:"totalErrors" gorm:"not null"`
	ScheduledAt        *time.Time    `json:"scheduledAt,omitempty" gorm:"index"`
	SendTimeoutSeconds int           `json:"sendTimeoutSeconds" gorm:"not null"`
	SendStartedAt      *time.Time    `json:"sendStartedAt,omitempty"`
	SendFinishedAt     *time.Time    `json:"sendFinishedAt,omitempty"`
	CreatedByID        string        `json:"createdById" gorm:"type:varchar(36)"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

// MessageContact is the join row between messages and their recipients
type MessageContact struct {
	MessageID string `gorm:"primaryKey;type:varchar(36)"`
	ContactID string `gorm:"primaryKey;type:varchar(36);index"`
}

// MessageLog records the send attempt for one recipient of one message
type MessageLog struct {
	ID               string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MessageID        string     `json:"messageId" gorm:"type:varchar(36);not null;uniqueIndex:idx_log_message_contact"`
	ContactID        string     `json:"contactId" gorm:"type:varchar(36);not null;uniqueIndex:idx_log_message_contact"`
	ContactName      string     `json:"contactName" gorm:"type:varchar(150)"`
	Phone            string     `json:"phone" gorm:"type:varchar(20);not null"`
	Text             string     `json:"text" gorm:"type:text;not null"`
	Status           LogStatus  `json:"status" gorm:"type:varchar(20);not null;index"`
	ProviderResponse string     `json:"providerResponse,omitempty" gorm:"type:text"`
	ErrorMessage     string     `json:"errorMessage,omitempty" gorm:"type:text"`
	SentAt           *time.Time `json:"sentAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (l *MessageLog) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = newID()
	}
	return nil
}

// Stats summarizes the data visible in a scope
type Stats struct {
	TotalContacts      int64                   `json:"totalContacts"`
	ActiveContacts     int64                   `json:"activeContacts"`
	TotalTags          int64                   `json:"totalTags"`
	TotalCampaigns     int64                   `json:"totalCampaigns"`
	TotalMessages      int64                   `json:"totalMessages"`
	MessagesByStatus   map[MessageStatus]int64 `json:"messagesByStatus"`
	TotalLogsSent      int64                   `json:"totalLogsSent"`
	TotalLogsWithError int64                   `json:"totalLogsWithError"`
}
