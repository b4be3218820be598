package database

import (
	"context"

	"github.com/syncwave/crm/internal/access"
	"gorm.io/gorm"
)

func (s *store) CreateGrant(ctx context.Context, grant *CompanyPermission) error {
	return translateError(getDBFromContext(ctx, s.db).Create(grant).Error, "permission")
}

func (s *store) GetGrant(ctx context.Context, id string) (*CompanyPermission, error) {
	var grant CompanyPermission
	if err := getDBFromContext(ctx, s.db).Where("id = ?", id).First(&grant).Error; err != nil {
		return nil, translateError(err, "permission")
	}
	return &grant, nil
}

func (s *store) UpdateGrant(ctx context.Context, grant *CompanyPermission) error {
	return translateError(getDBFromContext(ctx, s.db).Save(grant).Error, "permission")
}

func (s *store) DeleteGrant(ctx context.Context, id string) error {
	res := getDBFromContext(ctx, s.db).Delete(&CompanyPermission{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "permission")
	}
	return nil
}

func (s *store) ListGrants(ctx context.Context, scope access.Scope) ([]*CompanyPermission, error) {
	q := getDBFromContext(ctx, s.db).Model(&CompanyPermission{})
	if !scope.Unrestricted() {
		ids := scope.CompanyIDs()
		if len(ids) == 0 {
			return []*CompanyPermission{}, nil
		}
		q = q.Where("owner_company_id IN ? OR granted_company_id IN ?", ids, ids)
	}
	var grants []*CompanyPermission
	err := q.Order("created_at desc").Find(&grants).Error
	return grants, err
}

// HasActiveGrant implements access.GrantLookup
func (s *store) HasActiveGrant(ctx context.Context, ownerID, grantedID string, types ...access.PermissionType) (bool, error) {
	var count int64
	q := getDBFromContext(ctx, s.db).Model(&CompanyPermission{}).
		Where("owner_company_id = ? AND granted_company_id = ? AND is_active = ?", ownerID, grantedID, true)
	if len(types) > 0 {
		q = q.Where("permission_type IN ?", types)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GrantedOwnerIDs implements access.GrantLookup
func (s *store) GrantedOwnerIDs(ctx context.Context, grantedID string) ([]string, error) {
	var ids []string
	err := getDBFromContext(ctx, s.db).Model(&CompanyPermission{}).
		Where("granted_company_id = ? AND is_active = ?", grantedID, true).
		Distinct().
		Pluck("owner_company_id", &ids).Error
	return ids, err
}
