package database

import (
	"context"

	"github.com/syncwave/crm/internal/access"
	"gorm.io/gorm"
)

func (s *store) CreateUser(ctx context.Context, user *User) error {
	return translateError(getDBFromContext(ctx, s.db).Create(user).Error, "user")
}

func (s *store) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := getDBFromContext(ctx, s.db).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err, "user")
	}
	return &user, nil
}

func (s *store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := getDBFromContext(ctx, s.db).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateError(err, "user")
	}
	return &user, nil
}

func (s *store) UpdateUser(ctx context.Context, user *User) error {
	return translateError(getDBFromContext(ctx, s.db).Save(user).Error, "user")
}

func (s *store) DeleteUser(ctx context.Context, id string) error {
	res := getDBFromContext(ctx, s.db).Delete(&User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "user")
	}
	return nil
}

func (s *store) ListUsers(ctx context.Context, scope access.Scope, filter UserFilter) ([]*User, error) {
	q := applyScope(getDBFromContext(ctx, s.db).Model(&User{}), scope, "company_id")
	if filter.CompanyID != "" {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", p, p, p, p)
	}
	var users []*User
	err := q.Order("username asc").Find(&users).Error
	return users, err
}
