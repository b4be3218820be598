package config

import (
	"fmt"
	"strings"

	"github.com/syncwave/crm/internal/common/cnst"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid apiserver configuration:")
	for _, p := range e.Problems {
		sb.WriteString("\n--> ")
		sb.WriteString(p)
	}
	return sb.String()
}

// Validate checks an APIServerConfig after defaults have been applied
func (c *APIServerConfig) Validate() error {
	var problems []string

	switch c.Database.Type {
	case cnst.DBTypeSQLite:
		if c.Database.DBName == "" {
			problems = append(problems, "database.dbname is required for sqlite")
		}
	case cnst.DBTypePostgres, cnst.DBTypeMySQL:
		if c.Database.Host == "" || c.Database.DBName == "" {
			problems = append(problems, fmt.Sprintf("database.host and database.dbname are required for %s", c.Database.Type))
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported database type %q", c.Database.Type))
	}

	if len(c.JWT.SecretKey) < 32 {
		problems = append(problems, "jwt.secret_key must be at least 32 characters")
	}

	switch c.Provider.Type {
	case cnst.ProviderSimulated:
	case cnst.ProviderEvolution:
		if c.Provider.Evolution.BaseURL == "" || c.Provider.Evolution.Instance == "" {
			problems = append(problems, "provider.evolution.base_url and provider.evolution.instance are required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported provider type %q", c.Provider.Type))
	}

	switch c.I18n.DefaultLang {
	case cnst.LangEN, cnst.LangPT:
	default:
		problems = append(problems, fmt.Sprintf("unsupported i18n.default_lang %q", c.I18n.DefaultLang))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
