package access

import (
	"context"

	"github.com/syncwave/crm/internal/common/errorx"
)

// GrantLookup answers questions about cross-company permission grants
type GrantLookup interface {
	// HasActiveGrant reports whether owner has an active grant to granted.
	// With no types any permission type matches.
	HasActiveGrant(ctx context.Context, ownerID, grantedID string, types ...PermissionType) (bool, error)
	// GrantedOwnerIDs lists the companies that actively granted access to granted.
	GrantedOwnerIDs(ctx context.Context, grantedID string) ([]string, error)
}

// Policy evaluates tenant access for principals
type Policy struct {
	grants GrantLookup
}

// NewPolicy creates a policy backed by the given grant lookup
func NewPolicy(grants GrantLookup) *Policy {
	return &Policy{grants: grants}
}

type checkOptions struct {
	types []PermissionType
}

// Option narrows an access check
type Option func(*checkOptions)

// WithPermission requires a grant of one of the given types when access
// depends on a cross-company grant
func WithPermission(types ...PermissionType) Option {
	return func(o *checkOptions) {
		o.types = append(o.types, types...)
	}
}

// CanAccess reports whether p may access resources owned by companyID
func (pl *Policy) CanAccess(ctx context.Context, p *Principal, companyID string, opts ...Option) (bool, error) {
	if p == nil {
		return false, nil
	}
	if p.HasGlobalAccess() {
		return true, nil
	}
	if companyID == "" || p.CompanyID == "" {
		return false, nil
	}
	if p.CompanyID == companyID {
		return true, nil
	}
	if pl.grants == nil {
		return false, nil
	}

	var o checkOptions
	for _, opt := range opts {
		opt(&o)
	}
	return pl.grants.HasActiveGrant(ctx, companyID, p.CompanyID, o.types...)
}

// Authorize returns an authorization error unless p may access companyID
func (pl *Policy) Authorize(ctx context.Context, p *Principal, companyID string, opts ...Option) error {
	ok, err := pl.CanAccess(ctx, p, companyID, opts...)
	if err != nil {
		return err
	}
	if !ok {
		return errorx.Forbidden(errorx.MsgForbidden)
	}
	return nil
}

// AuthorizeWrite guards mutations of data owned by companyID
func (pl *Policy) AuthorizeWrite(ctx context.Context, p *Principal, companyID string) error {
	if p == nil {
		return errorx.Forbidden(errorx.MsgForbidden)
	}
	if !p.Superuser && !p.Role.CanWrite() {
		return errorx.Forbidden(errorx.MsgReadOnlyRole)
	}
	return pl.Authorize(ctx, p, companyID, WithPermission(PermissionWrite, PermissionAdmin))
}

// OwnerCompany returns the company a new entity is assigned to: the
// requested one, or the principal's own company when none was given
func OwnerCompany(p *Principal, requested string) string {
	if requested != "" || p == nil {
		return requested
	}
	return p.CompanyID
}

// Scope returns the companies p may list. Grants are only unioned in
// when includeGrants is set.
func (pl *Policy) Scope(ctx context.Context, p *Principal, includeGrants bool) (Scope, error) {
	if p == nil {
		return OnlyCompanies(), nil
	}
	if p.HasGlobalAccess() {
		return AllCompanies(), nil
	}
	ids := []string{p.CompanyID}
	if includeGrants && pl.grants != nil {
		owners, err := pl.grants.GrantedOwnerIDs(ctx, p.CompanyID)
		if err != nil {
			return Scope{}, err
		}
		ids = append(ids, owners...)
	}
	return OnlyCompanies(ids...), nil
}
