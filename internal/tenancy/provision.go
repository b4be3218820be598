package tenancy

import (
	"context"
	"errors"
	"strings"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
	"go.uber.org/zap"
)

// ProvisionInput describes the master company and its first administrator
type ProvisionInput struct {
	CompanyName string
	Slug        string
	CNPJ        string
	Email       string
	Username    string
	Password    string
}

// ProvisionMaster creates the single master company and its superuser
// administrator atomically. It fails when a master company already exists.
func (s *Service) ProvisionMaster(ctx context.Context, in ProvisionInput) (*database.Company, *database.User, error) {
	if err := required("companyName", in.CompanyName); err != nil {
		return nil, nil, err
	}
	if err := required("username", in.Username); err != nil {
		return nil, nil, err
	}

	var (
		company *database.Company
		admin   *database.User
	)
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.db.GetMasterCompany(ctx); err == nil {
			return errorx.Validation("type", errorx.MsgMasterCompanyExists)
		} else if !errors.Is(err, errorx.ErrNotFound) {
			return err
		}

		company = &database.Company{Type: access.CompanyMaster, IsActive: true}
		(&CompanyInput{Name: in.CompanyName, Slug: in.Slug, CNPJ: in.CNPJ, Email: in.Email}).apply(company)
		if err := s.validateCompany(ctx, company); err != nil {
			return err
		}
		if err := s.db.CreateCompany(ctx, company); err != nil {
			return err
		}

		admin = &database.User{
			Username:    strings.TrimSpace(in.Username),
			Email:       strings.TrimSpace(in.Email),
			Role:        access.RoleAdmin,
			IsSuperuser: true,
			IsActive:    true,
		}
		ApplyCompanyRules(admin, company)
		if err := s.validateUser(admin); err != nil {
			return err
		}
		hashed, err := s.hashPassword(in.Password)
		if err != nil {
			return err
		}
		admin.Password = hashed
		return s.db.CreateUser(ctx, admin)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("master company provisioned",
		zap.String("company_id", company.ID),
		zap.String("slug", company.Slug),
		zap.String("admin", admin.Username))
	return company, admin, nil
}
