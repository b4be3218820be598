package database

import (
	"fmt"

	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/internal/common/config"
)

// NewDatabase creates a new database based on configuration
func NewDatabase(cfg *config.DatabaseConfig) (Database, error) {
	switch cfg.Type {
	case cnst.DBTypePostgres:
		return NewPostgres(cfg)
	case cnst.DBTypeSQLite:
		return NewSQLite(cfg)
	case cnst.DBTypeMySQL:
		return NewMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
