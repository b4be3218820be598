package database

import (
	"fmt"

	"github.com/syncwave/crm/internal/common/config"
	"gorm.io/driver/mysql"
)

// MySQL implements the Database interface using MySQL
type MySQL struct {
	*store
	cfg *config.DatabaseConfig
}

// NewMySQL creates a new MySQL instance
func NewMySQL(cfg *config.DatabaseConfig) (Database, error) {
	gormDB, err := openGorm(mysql.Open(cfg.GetDSN()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(gormDB); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &MySQL{store: &store{db: gormDB}, cfg: cfg}, nil
}
