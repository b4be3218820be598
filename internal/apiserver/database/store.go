package database

import (
	"context"
	"errors"
	"strings"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/common/errorx"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// store implements Database on top of any gorm dialector
type store struct {
	db *gorm.DB
}

func openGorm(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
}

func migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Contact{}, "Tags", &ContactTag{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&Message{}, "Contacts", &MessageContact{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&Company{},
		&User{},
		&CompanyPermission{},
		&Tag{},
		&Contact{},
		&ContactTag{},
		&Campaign{},
		&Message{},
		&MessageContact{},
		&MessageLog{},
	)
}

// Close closes the database connection
func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn in a transaction, joining the one already in ctx if any
func (s *store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return getDBFromContext(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTransaction(ctx, tx))
	})
}

// inTx runs fn with the transactional *gorm.DB for ctx
func (s *store) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		return fn(getDBFromContext(ctx, s.db))
	})
}

func applyScope(q *gorm.DB, scope access.Scope, column string) *gorm.DB {
	if scope.Unrestricted() {
		return q
	}
	ids := scope.CompanyIDs()
	if len(ids) == 0 {
		return q.Where("1 = 0")
	}
	return q.Where(column+" IN ?", ids)
}

func applyPage(q *gorm.DB, p Page) *gorm.DB {
	if p.PageSize <= 0 {
		return q
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return q.Offset((page - 1) * p.PageSize).Limit(p.PageSize)
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// translateError maps storage errors onto domain errors for resource
func translateError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorx.NotFound(resource)
	case isUniqueViolation(err):
		return errorx.Conflict(resource, err)
	default:
		return err
	}
}

type countRow struct {
	Name  string
	Count int64
}
