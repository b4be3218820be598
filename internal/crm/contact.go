package crm

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ifuryst/lol"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
	"go.uber.org/zap"
)

const (
	OriginManual    = "MANUAL"
	OriginCSVImport = "IMPORTACAO_CSV"
)

// maxNameLength is counted in characters
const maxNameLength = 150

var (
	phonePattern  = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	phoneReplacer = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// NormalizePhone strips the separators people type into phone numbers
func NormalizePhone(phone string) string {
	return phoneReplacer.Replace(strings.TrimSpace(phone))
}

// ValidPhone reports whether a normalized phone is in E.164 form
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ContactInput carries the editable contact fields
type ContactInput struct {
	CompanyID string   `json:"companyId"`
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	IsActive  *bool    `json:"isActive"`
	Origin    string   `json:"origin"`
	Notes     string   `json:"notes"`
	TagIDs    []string `json:"tagIds"`
}

func (in *ContactInput) apply(c *database.Contact) {
	c.Name = strings.ToUpper(strings.TrimSpace(in.Name))
	c.Phone = NormalizePhone(in.Phone)
	c.Email = strings.TrimSpace(in.Email)
	c.Notes = in.Notes
	if o := strings.TrimSpace(in.Origin); o != "" {
		c.Origin = strings.ToUpper(o)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

// validateContact checks the fields and phone uniqueness of c
func (s *Service) validateContact(ctx context.Context, c *database.Contact) error {
	if c.Name == "" {
		return errorx.Validation("name", errorx.MsgFieldRequired)
	}
	if utf8.RuneCountInString(c.Name) > maxNameLength {
		return errorx.Validation("name", errorx.MsgFieldInvalid)
	}
	if c.Phone == "" {
		return errorx.Validation("phone", errorx.MsgFieldRequired)
	}
	if !ValidPhone(c.Phone) {
		return errorx.Validation("phone", errorx.MsgInvalidPhone)
	}
	if c.Email != "" && validate.Var(c.Email, "email") != nil {
		return errorx.Validation("email", errorx.MsgInvalidEmail)
	}

	existing, err := s.db.GetContactByPhone(ctx, c.CompanyID, c.Phone)
	switch {
	case err == nil && existing.ID != c.ID:
		return errorx.Validation("phone", errorx.MsgPhoneExists)
	case err != nil && !errors.Is(err, errorx.ErrNotFound):
		return err
	}
	return nil
}

// resolveTags loads the tags by id and rejects tags of other companies
func (s *Service) resolveTags(ctx context.Context, companyID string, ids []string) ([]database.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ids = lol.UniqSlice(ids)
	tags, err := s.db.GetTagsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(tags))
	out := make([]database.Tag, 0, len(tags))
	for _, t := range tags {
		if t.CompanyID != companyID {
			return nil, errorx.Validation("tagIds", errorx.MsgTagForeignCompany)
		}
		found[t.ID] = struct{}{}
		out = append(out, *t)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, errorx.Validation("tagIds", errorx.MsgFieldInvalid)
		}
	}
	return out, nil
}

func translatePhoneConflict(err error) error {
	if errors.Is(err, errorx.ErrConflict) {
		return errorx.Validation("phone", errorx.MsgPhoneExists)
	}
	return err
}

// CreateContact creates a contact, assigning the company before validation
func (s *Service) CreateContact(ctx context.Context, p *access.Principal, in ContactInput) (*database.Contact, error) {
	contact := &database.Contact{
		CompanyID: access.OwnerCompany(p, in.CompanyID),
		IsActive:  true,
		Origin:    OriginManual,
	}
	in.apply(contact)
	if err := s.policy.AuthorizeWrite(ctx, p, contact.CompanyID); err != nil {
		return nil, err
	}
	if err := s.validateContact(ctx, contact); err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, contact.CompanyID, in.TagIDs)
	if err != nil {
		return nil, err
	}
	contact.Tags = tags

	if err := s.db.CreateContact(ctx, contact); err != nil {
		return nil, translatePhoneConflict(err)
	}
	return contact, nil
}

// GetContact returns a contact visible to the principal
func (s *Service) GetContact(ctx context.Context, p *access.Principal, id string) (*database.Contact, error) {
	scope, err := s.readScope(ctx, p, true)
	if err != nil {
		return nil, err
	}
	return s.db.GetContact(ctx, scope, id)
}

// UpdateContact replaces the contact fields and its tags
func (s *Service) UpdateContact(ctx context.Context, p *access.Principal, id string, in ContactInput) (*database.Contact, error) {
	contact, err := s.GetContact(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.AuthorizeWrite(ctx, p, contact.CompanyID); err != nil {
		return nil, err
	}
	in.apply(contact)
	if err := s.validateContact(ctx, contact); err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, contact.CompanyID, in.TagIDs)
	if err != nil {
		return nil, err
	}
	contact.Tags = tags

	if err := s.db.UpdateContact(ctx, contact); err != nil {
		return nil, translatePhoneConflict(err)
	}
	return contact, nil
}

// DeleteContact removes a contact; logs of past sends are kept
func (s *Service) DeleteContact(ctx context.Context, p *access.Principal, id string) error {
	contact, err := s.GetContact(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.policy.AuthorizeWrite(ctx, p, contact.CompanyID); err != nil {
		return err
	}
	return s.db.DeleteContact(ctx, contact.ID)
}

// ListContacts returns one page of visible contacts and the total match count
func (s *Service) ListContacts(ctx context.Context, p *access.Principal, filter database.ContactFilter, includeShared bool) ([]*database.Contact, int64, error) {
	scope, err := s.readScope(ctx, p, includeShared)
	if err != nil {
		return nil, 0, err
	}
	return s.db.ListContacts(ctx, scope, filter)
}

// AddTag attaches the tag with the given name to the contact, creating
// the tag in the contact's company when needed
func (s *Service) AddTag(ctx context.Context, p *access.Principal, contactID, name string) (*database.Tag, error) {
	contact, err := s.GetContact(ctx, p, contactID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.AuthorizeWrite(ctx, p, contact.CompanyID); err != nil {
		return nil, err
	}

	var tag *database.Tag
	err = s.db.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if tag, err = s.ensureTag(ctx, contact.CompanyID, name); err != nil {
			return err
		}
		return s.db.AttachTag(ctx, contact.ID, tag.ID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("tag attached", zap.String("contact_id", contact.ID), zap.String("tag", tag.Name))
	return tag, nil
}

// RemoveTag detaches a tag from the contact
func (s *Service) RemoveTag(ctx context.Context, p *access.Principal, contactID, tagID string) error {
	contact, err := s.GetContact(ctx, p, contactID)
	if err != nil {
		return err
	}
	if err := s.policy.AuthorizeWrite(ctx, p, contact.CompanyID); err != nil {
		return err
	}
	return s.db.DetachTag(ctx, contact.ID, tagID)
}
