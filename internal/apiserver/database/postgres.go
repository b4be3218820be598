package database

import (
	"fmt"

	"github.com/syncwave/crm/internal/common/config"
	"gorm.io/driver/postgres"
)

// Postgres implements the Database interface using PostgreSQL
type Postgres struct {
	*store
	cfg *config.DatabaseConfig
}

// NewPostgres creates a new Postgres instance
func NewPostgres(cfg *config.DatabaseConfig) (Database, error) {
	gormDB, err := openGorm(postgres.Open(cfg.GetDSN()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(gormDB); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Postgres{store: &store{db: gormDB}, cfg: cfg}, nil
}
