package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
	"go.uber.org/zap"
)

// CompanyInput carries the editable company fields
type CompanyInput struct {
	Name     string             `json:"name"`
	Slug     string             `json:"slug"`
	Type     access.CompanyType `json:"type"`
	CNPJ     string             `json:"cnpj"`
	Email    string             `json:"email"`
	Phone    string             `json:"phone"`
	Address  string             `json:"address"`
	City     string             `json:"city"`
	State    string             `json:"state"`
	ZipCode  string             `json:"zipCode"`
	IsActive *bool              `json:"isActive"`
}

func (in *CompanyInput) apply(c *database.Company) {
	c.Name = strings.TrimSpace(in.Name)
	if slug := strings.TrimSpace(in.Slug); slug != "" {
		c.Slug = slug
	}
	if in.Type != "" {
		c.Type = in.Type
	}
	c.CNPJ = nil
	if cnpj := strings.TrimSpace(in.CNPJ); cnpj != "" {
		c.CNPJ = &cnpj
	}
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = in.Address
	c.City = in.City
	c.State = strings.ToUpper(strings.TrimSpace(in.State))
	c.ZipCode = in.ZipCode
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

// validateCompany checks fields and the single-master rule before a write
func (s *Service) validateCompany(ctx context.Context, c *database.Company) error {
	if err := required("name", c.Name); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return errorx.Validation("type", errorx.MsgInvalidCompanyType)
	}
	if !validEmail(c.Email) {
		return errorx.Validation("email", errorx.MsgInvalidEmail)
	}

	if c.Slug == "" {
		slug, err := s.uniqueSlug(ctx, c.Name, c.ID)
		if err != nil {
			return err
		}
		c.Slug = slug
	}
	if !ValidSlug(c.Slug) {
		return errorx.Validation("slug", errorx.MsgInvalidSlug)
	}

	if c.Type == access.CompanyMaster {
		if !c.IsActive {
			return errorx.Validation("isActive", errorx.MsgMasterMustBeActive)
		}
		master, err := s.db.GetMasterCompany(ctx)
		switch {
		case err == nil && master.ID != c.ID:
			return errorx.Validation("type", errorx.MsgMasterCompanyExists)
		case err != nil && !errors.Is(err, errorx.ErrNotFound):
			return err
		}
	}
	return nil
}

func (s *Service) uniqueSlug(ctx context.Context, name, excludeID string) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "company"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := s.db.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateCompany creates a tenant; only master operators may do so
func (s *Service) CreateCompany(ctx context.Context, p *access.Principal, in CompanyInput) (*database.Company, error) {
	if !p.HasGlobalAccess() || !p.IsAdmin() {
		return nil, errorx.Forbidden(errorx.MsgForbidden)
	}

	company := &database.Company{Type: access.CompanyClient, IsActive: true}
	in.apply(company)
	if err := s.validateCompany(ctx, company); err != nil {
		return nil, err
	}
	if err := s.db.CreateCompany(ctx, company); err != nil {
		return nil, err
	}
	s.logger.Info("company created",
		zap.String("company_id", company.ID),
		zap.String("slug", company.Slug),
		zap.String("type", string(company.Type)),
		zap.String("by", p.Username))
	return company, nil
}

// UpdateCompany edits a company the principal administers
func (s *Service) UpdateCompany(ctx context.Context, p *access.Principal, id string, in CompanyInput) (*database.Company, error) {
	company, err := s.GetCompany(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		return nil, errorx.Forbidden(errorx.MsgAdminRequired)
	}
	if err := s.policy.AuthorizeWrite(ctx, p, company.ID); err != nil {
		return nil, err
	}
	if in.Type != "" && in.Type != company.Type && !p.HasGlobalAccess() {
		return nil, errorx.Forbidden(errorx.MsgForbidden)
	}

	in.apply(company)
	if err := s.validateCompany(ctx, company); err != nil {
		return nil, err
	}
	if err := s.db.UpdateCompany(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// GetCompany returns a company visible to the principal
func (s *Service) GetCompany(ctx context.Context, p *access.Principal, id string) (*database.Company, error) {
	scope, err := s.policy.Scope(ctx, p, true)
	if err != nil {
		return nil, err
	}
	return s.db.GetCompany(ctx, scope, id)
}

// ListCompanies lists visible companies with their user counts
func (s *Service) ListCompanies(ctx context.Context, p *access.Principal, filter database.CompanyFilter, includeShared bool) ([]*database.Company, error) {
	scope, err := s.policy.Scope(ctx, p, includeShared)
	if err != nil {
		return nil, err
	}
	return s.db.ListCompanies(ctx, scope, filter)
}

// AccessibleCompanies lists the active companies the principal can see,
// including those that granted it access
func (s *Service) AccessibleCompanies(ctx context.Context, p *access.Principal) ([]*database.Company, error) {
	return s.ListCompanies(ctx, p, database.CompanyFilter{ActiveOnly: true}, true)
}

// DeleteCompany removes a company that no longer owns users or tenant data
func (s *Service) DeleteCompany(ctx context.Context, p *access.Principal, id string) error {
	if !p.HasGlobalAccess() || !p.IsAdmin() {
		return errorx.Forbidden(errorx.MsgForbidden)
	}
	company, err := s.db.GetCompany(ctx, access.AllCompanies(), id)
	if err != nil {
		return err
	}
	n, err := s.db.CountCompanyUsers(ctx, company.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return errorx.InvalidState(errorx.MsgCompanyHasUsers)
	}
	owns, err := s.db.CompanyOwnsData(ctx, company.ID)
	if err != nil {
		return err
	}
	if owns {
		return errorx.InvalidState(errorx.MsgCompanyHasData)
	}
	if err := s.db.DeleteCompany(ctx, company.ID); err != nil {
		return err
	}
	s.logger.Info("company deleted", zap.String("company_id", company.ID), zap.String("by", p.Username))
	return nil
}
