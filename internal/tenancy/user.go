package tenancy

import (
	"context"
	"errors"
	"strings"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserInput carries the editable user fields
type UserInput struct {
	CompanyID             string      `json:"companyId"`
	Username              string      `json:"username"`
	Password              string      `json:"password"`
	FirstName             string      `json:"firstName"`
	LastName              string      `json:"lastName"`
	Email                 string      `json:"email"`
	Phone                 string      `json:"phone"`
	Role                  access.Role `json:"role"`
	CanAccessAllCompanies bool        `json:"canAccessAllCompanies"`
	IsActive              *bool       `json:"isActive"`
}

// ApplyCompanyRules enforces the invariants tying a user to its company:
// users of the master company always see every company
func ApplyCompanyRules(user *database.User, company *database.Company) {
	user.CompanyID = company.ID
	if company.Type == access.CompanyMaster {
		user.CanAccessAllCompanies = true
	}
}

// authorizeUserAdmin checks that p may manage users of companyID
func (s *Service) authorizeUserAdmin(ctx context.Context, p *access.Principal, companyID string) (*database.Company, error) {
	if !p.IsAdmin() {
		return nil, errorx.Forbidden(errorx.MsgAdminRequired)
	}
	if companyID != p.CompanyID && !p.HasGlobalAccess() {
		return nil, errorx.Forbidden(errorx.MsgForbidden)
	}
	company, err := s.db.GetCompany(ctx, access.AllCompanies(), companyID)
	if err != nil {
		if errors.Is(err, errorx.ErrNotFound) {
			return nil, errorx.Validation("companyId", errorx.MsgFieldInvalid)
		}
		return nil, err
	}
	return company, nil
}

func (s *Service) validateUser(u *database.User) error {
	if err := required("username", u.Username); err != nil {
		return err
	}
	if !u.Role.Valid() {
		return errorx.Validation("role", errorx.MsgInvalidRole)
	}
	if !validEmail(u.Email) {
		return errorx.Validation("email", errorx.MsgInvalidEmail)
	}
	return nil
}

// CreateUser creates a user inside a company the principal administers
func (s *Service) CreateUser(ctx context.Context, p *access.Principal, in UserInput) (*database.User, error) {
	company, err := s.authorizeUserAdmin(ctx, p, access.OwnerCompany(p, in.CompanyID))
	if err != nil {
		return nil, err
	}

	user := &database.User{
		Username:  strings.TrimSpace(in.Username),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     strings.TrimSpace(in.Email),
		Phone:     in.Phone,
		Role:      in.Role,
		IsActive:  true,
	}
	if user.Role == "" {
		user.Role = access.RoleEmployee
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if p.HasGlobalAccess() {
		user.CanAccessAllCompanies = in.CanAccessAllCompanies
	}
	ApplyCompanyRules(user, company)
	if err := s.validateUser(user); err != nil {
		return nil, err
	}
	if user.Password, err = s.hashPassword(in.Password); err != nil {
		return nil, err
	}

	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("company_id", user.CompanyID),
		zap.String("by", p.Username))
	return user, nil
}

// UpdateUser edits a user; the password changes only when one is given
func (s *Service) UpdateUser(ctx context.Context, p *access.Principal, id string, in UserInput) (*database.User, error) {
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.HasGlobalAccess() && user.CompanyID != p.CompanyID {
		return nil, errorx.NotFound("user")
	}
	targetCompany := user.CompanyID
	if in.CompanyID != "" {
		targetCompany = in.CompanyID
	}
	company, err := s.authorizeUserAdmin(ctx, p, targetCompany)
	if err != nil {
		return nil, err
	}

	if u := strings.TrimSpace(in.Username); u != "" {
		user.Username = u
	}
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Email = strings.TrimSpace(in.Email)
	user.Phone = in.Phone
	if in.Role != "" {
		user.Role = in.Role
	}
	if in.IsActive != nil {
		if !*in.IsActive && user.ID == p.UserID {
			return nil, errorx.Validation("isActive", errorx.MsgFieldInvalid)
		}
		user.IsActive = *in.IsActive
	}
	if p.HasGlobalAccess() {
		user.CanAccessAllCompanies = in.CanAccessAllCompanies
	}
	ApplyCompanyRules(user, company)
	if err := s.validateUser(user); err != nil {
		return nil, err
	}
	if in.Password != "" {
		if user.Password, err = s.hashPassword(in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user other than the caller
func (s *Service) DeleteUser(ctx context.Context, p *access.Principal, id string) error {
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.HasGlobalAccess() && user.CompanyID != p.CompanyID {
		return errorx.NotFound("user")
	}
	if _, err := s.authorizeUserAdmin(ctx, p, user.CompanyID); err != nil {
		return err
	}
	if user.ID == p.UserID {
		return errorx.Validation("id", errorx.MsgFieldInvalid)
	}
	return s.db.DeleteUser(ctx, user.ID)
}

// ListUsers lists users of the companies the principal can see
func (s *Service) ListUsers(ctx context.Context, p *access.Principal, filter database.UserFilter) ([]*database.User, error) {
	scope, err := s.policy.Scope(ctx, p, false)
	if err != nil {
		return nil, err
	}
	return s.db.ListUsers(ctx, scope, filter)
}

// Authenticate verifies credentials and records the login time
func (s *Service) Authenticate(ctx context.Context, username, password string) (*database.User, error) {
	user, err := s.db.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, errorx.ErrNotFound) {
			return nil, errorx.Unauthenticated(errorx.MsgInvalidCredentials)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errorx.Unauthenticated(errorx.MsgInvalidCredentials)
	}
	if !user.IsActive {
		return nil, errorx.Forbidden(errorx.MsgUserDisabled)
	}
	company, err := s.db.GetCompany(ctx, access.AllCompanies(), user.CompanyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, errorx.Forbidden(errorx.MsgCompanyInactive)
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.db.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the old one
func (s *Service) ChangePassword(ctx context.Context, p *access.Principal, oldPassword, newPassword string) error {
	user, err := s.db.GetUserByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return errorx.Validation("oldPassword", errorx.MsgInvalidOldPassword)
	}
	if user.Password, err = s.hashPassword(newPassword); err != nil {
		return err
	}
	return s.db.UpdateUser(ctx, user)
}
