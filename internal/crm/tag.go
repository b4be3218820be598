package crm

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
)

// DefaultTagColor is used when a tag is created without a color
const DefaultTagColor = "#6B7280"

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// TagInput carries the editable tag fields
type TagInput struct {
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
	Color     string `json:"color"`
}

// NormalizeTagName trims and upper-cases a tag name
func NormalizeTagName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func validateTag(t *database.Tag) error {
	if t.Name == "" {
		return errorx.Validation("name", errorx.MsgFieldRequired)
	}
	if len(t.Name) > 50 {
		return errorx.Validation("name", errorx.MsgFieldInvalid)
	}
	if !colorPattern.MatchString(t.Color) {
		return errorx.Validation("color", errorx.MsgInvalidColor)
	}
	return nil
}

// translateTagConflict reports a duplicate name as a field error
func translateTagConflict(err error) error {
	if errors.Is(err, errorx.ErrConflict) {
		return errorx.Validation("name", errorx.MsgTagNameExists)
	}
	return err
}

// CreateTag creates a tag in the principal's company or the requested one
func (s *Service) CreateTag(ctx context.Context, p *access.Principal, in TagInput) (*database.Tag, error) {
	tag := &database.Tag{
		CompanyID: access.OwnerCompany(p, in.CompanyID),
		Name:      NormalizeTagName(in.Name),
		Color:     strings.TrimSpace(in.Color),
	}
	if tag.Color == "" {
		tag.Color = DefaultTagColor
	}
	if err := s.policy.AuthorizeWrite(ctx, p, tag.CompanyID); err != nil {
		return nil, err
	}
	if err := validateTag(tag); err != nil {
		return nil, err
	}
	if err := s.db.CreateTag(ctx, tag); err != nil {
		return nil, translateTagConflict(err)
	}
	return tag, nil
}

// GetTag returns a tag visible to the principal
func (s *Service) GetTag(ctx context.Context, p *access.Principal, id string) (*database.Tag, error) {
	scope, err := s.readScope(ctx, p, true)
	if err != nil {
		return nil, err
	}
	return s.db.GetTag(ctx, scope, id)
}

// UpdateTag renames or recolors a tag
func (s *Service) UpdateTag(ctx context.Context, p *access.Principal, id string, in TagInput) (*database.Tag, error) {
	tag, err := s.GetTag(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.AuthorizeWrite(ctx, p, tag.CompanyID); err != nil {
		return nil, err
	}
	if in.Name != "" {
		tag.Name = NormalizeTagName(in.Name)
	}
	if c := strings.TrimSpace(in.Color); c != "" {
		tag.Color = c
	}
	if err := validateTag(tag); err != nil {
		return nil, err
	}
	if err := s.db.UpdateTag(ctx, tag); err != nil {
		return nil, translateTagConflict(err)
	}
	return tag, nil
}

// DeleteTag removes a tag and detaches it from every contact
func (s *Service) DeleteTag(ctx context.Context, p *access.Principal, id string) error {
	tag, err := s.GetTag(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.policy.AuthorizeWrite(ctx, p, tag.CompanyID); err != nil {
		return err
	}
	return s.db.DeleteTag(ctx, tag.ID)
}

// ListTags lists visible tags with their contact counts
func (s *Service) ListTags(ctx context.Context, p *access.Principal, filter database.TagFilter, includeShared bool) ([]*database.Tag, error) {
	scope, err := s.readScope(ctx, p, includeShared)
	if err != nil {
		return nil, err
	}
	return s.db.ListTags(ctx, scope, filter)
}

// ensureTag returns the company's tag with the given name, creating it
// with the default color when missing
func (s *Service) ensureTag(ctx context.Context, companyID, name string) (*database.Tag, error) {
	name = NormalizeTagName(name)
	tag, err := s.db.GetTagByName(ctx, companyID, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, errorx.ErrNotFound) {
		return nil, err
	}

	tag = &database.Tag{CompanyID: companyID, Name: name, Color: DefaultTagColor}
	if err := validateTag(tag); err != nil {
		return nil, err
	}
	if err := s.db.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, errorx.ErrConflict) {
			return s.db.GetTagByName(ctx, companyID, name)
		}
		return nil, err
	}
	return tag, nil
}
