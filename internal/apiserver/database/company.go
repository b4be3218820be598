package database

import (
	"context"

	"github.com/syncwave/crm/internal/access"
	"gorm.io/gorm"
)

func (s *store) CreateCompany(ctx context.Context, company *Company) error {
	return translateError(getDBFromContext(ctx, s.db).Create(company).Error, "company")
}

func (s *store) GetCompany(ctx context.Context, scope access.Scope, id string) (*Company, error) {
	var company Company
	q := applyScope(getDBFromContext(ctx, s.db).Where("id = ?", id), scope, "id")
	if err := q.First(&company).Error; err != nil {
		return nil, translateError(err, "company")
	}
	return &company, nil
}

func (s *store) GetMasterCompany(ctx context.Context) (*Company, error) {
	var company Company
	err := getDBFromContext(ctx, s.db).
		Where("type = ?", access.CompanyMaster).
		Order("created_at asc").
		First(&company).Error
	if err != nil {
		return nil, translateError(err, "company")
	}
	return &company, nil
}

func (s *store) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int64
	q := getDBFromContext(ctx, s.db).Model(&Company{}).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (s *store) UpdateCompany(ctx context.Context, company *Company) error {
	return translateError(getDBFromContext(ctx, s.db).Save(company).Error, "company")
}

// DeleteCompany removes the company together with every grant naming it,
// on either side
func (s *store) DeleteCompany(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("owner_company_id = ? OR granted_company_id = ?", id, id).
			Delete(&CompanyPermission{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Company{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translateError(gorm.ErrRecordNotFound, "company")
		}
		return nil
	})
}

// CompanyOwnsData reports whether any tag, contact, campaign or message
// still belongs to the company
func (s *store) CompanyOwnsData(ctx context.Context, companyID string) (bool, error) {
	db := getDBFromContext(ctx, s.db)
	for _, model := range []any{&Tag{}, &Contact{}, &Campaign{}, &Message{}} {
		var count int64
		if err := db.Model(model).Where("company_id = ?", companyID).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *store) ListCompanies(ctx context.Context, scope access.Scope, filter CompanyFilter) ([]*Company, error) {
	db := getDBFromContext(ctx, s.db)
	q := applyScope(db.Model(&Company{}), scope, "id")
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(slug) LIKE ?", p, p)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var companies []*Company
	if err := q.Order("name asc").Find(&companies).Error; err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return companies, nil
	}

	ids := make([]string, len(companies))
	for i, c := range companies {
		ids[i] = c.ID
	}
	var rows []countRow
	err := getDBFromContext(ctx, s.db).Model(&User{}).
		Select("company_id AS name, COUNT(*) AS count").
		Where("company_id IN ?", ids).
		Group("company_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Name] = r.Count
	}
	for _, c := range companies {
		c.UserCount = counts[c.ID]
	}
	return companies, nil
}

func (s *store) CountCompanyUsers(ctx context.Context, companyID string) (int64, error) {
	var count int64
	err := getDBFromContext(ctx, s.db).Model(&User{}).Where("company_id = ?", companyID).Count(&count).Error
	return count, err
}
