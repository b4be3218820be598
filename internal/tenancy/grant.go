package tenancy

import (
	"context"
	"errors"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
	"go.uber.org/zap"
)

// GrantInput carries the fields of a cross-company permission
type GrantInput struct {
	OwnerCompanyID   string                `json:"ownerCompanyId"`
	GrantedCompanyID string                `json:"grantedCompanyId"`
	PermissionType   access.PermissionType `json:"permissionType"`
	IsActive         *bool                 `json:"isActive"`
}

// canManageGrantsOf reports whether p may grant access to ownerID's resources
func canManageGrantsOf(p *access.Principal, ownerID string) bool {
	if p == nil {
		return false
	}
	if p.Superuser || p.CompanyType == access.CompanyMaster {
		return true
	}
	return p.CompanyID == ownerID && p.Role.CanWrite()
}

func (s *Service) companyExists(ctx context.Context, field, id string) error {
	if err := required(field, id); err != nil {
		return err
	}
	if _, err := s.db.GetCompany(ctx, access.AllCompanies(), id); err != nil {
		if errors.Is(err, errorx.ErrNotFound) {
			return errorx.Validation(field, errorx.MsgFieldInvalid)
		}
		return err
	}
	return nil
}

// CreateGrant lets the granted company access the owner's resources
func (s *Service) CreateGrant(ctx context.Context, p *access.Principal, in GrantInput) (*database.CompanyPermission, error) {
	grant := &database.CompanyPermission{
		OwnerCompanyID:   access.OwnerCompany(p, in.OwnerCompanyID),
		GrantedCompanyID: in.GrantedCompanyID,
		PermissionType:   in.PermissionType,
		IsActive:         true,
	}
	if p != nil {
		grant.CreatedByID = p.UserID
	}
	if in.IsActive != nil {
		grant.IsActive = *in.IsActive
	}
	if grant.PermissionType == "" {
		grant.PermissionType = access.PermissionRead
	}

	if !canManageGrantsOf(p, grant.OwnerCompanyID) {
		return nil, errorx.Forbidden(errorx.MsgGrantCreatorDenied)
	}
	if err := s.validateGrant(ctx, grant); err != nil {
		return nil, err
	}
	if err := s.db.CreateGrant(ctx, grant); err != nil {
		return nil, err
	}
	s.logger.Info("permission granted",
		zap.String("owner_company_id", grant.OwnerCompanyID),
		zap.String("granted_company_id", grant.GrantedCompanyID),
		zap.String("permission_type", string(grant.PermissionType)),
		zap.String("by", p.Username))
	return grant, nil
}

func (s *Service) validateGrant(ctx context.Context, g *database.CompanyPermission) error {
	if err := s.companyExists(ctx, "ownerCompanyId", g.OwnerCompanyID); err != nil {
		return err
	}
	if err := s.companyExists(ctx, "grantedCompanyId", g.GrantedCompanyID); err != nil {
		return err
	}
	if g.OwnerCompanyID == g.GrantedCompanyID {
		return errorx.Validation("grantedCompanyId", errorx.MsgGrantSelf)
	}
	if !g.PermissionType.Valid() {
		return errorx.Validation("permissionType", errorx.MsgInvalidPermission)
	}
	return nil
}

func (s *Service) visibleGrant(ctx context.Context, p *access.Principal, id string) (*database.CompanyPermission, error) {
	grant, err := s.db.GetGrant(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.HasGlobalAccess() && p.CompanyID != grant.OwnerCompanyID && p.CompanyID != grant.GrantedCompanyID {
		return nil, errorx.NotFound("permission")
	}
	return grant, nil
}

// UpdateGrant changes the type or active flag of a grant
func (s *Service) UpdateGrant(ctx context.Context, p *access.Principal, id string, in GrantInput) (*database.CompanyPermission, error) {
	grant, err := s.visibleGrant(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !canManageGrantsOf(p, grant.OwnerCompanyID) {
		return nil, errorx.Forbidden(errorx.MsgGrantCreatorDenied)
	}
	if in.PermissionType != "" {
		grant.PermissionType = in.PermissionType
	}
	if in.IsActive != nil {
		grant.IsActive = *in.IsActive
	}
	if err := s.validateGrant(ctx, grant); err != nil {
		return nil, err
	}
	if err := s.db.UpdateGrant(ctx, grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// DeleteGrant revokes a grant
func (s *Service) DeleteGrant(ctx context.Context, p *access.Principal, id string) error {
	grant, err := s.visibleGrant(ctx, p, id)
	if err != nil {
		return err
	}
	if !canManageGrantsOf(p, grant.OwnerCompanyID) {
		return errorx.Forbidden(errorx.MsgGrantCreatorDenied)
	}
	return s.db.DeleteGrant(ctx, grant.ID)
}

// ListGrants lists grants given or received by the visible companies
func (s *Service) ListGrants(ctx context.Context, p *access.Principal) ([]*database.CompanyPermission, error) {
	scope, err := s.policy.Scope(ctx, p, false)
	if err != nil {
		return nil, err
	}
	return s.db.ListGrants(ctx, scope)
}
