package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/pkg/trace"
)

type (
	APIServerConfig struct {
		Server   ServerConfig   `yaml:"server"`
		Database DatabaseConfig `yaml:"database"`
		Logger   LoggerConfig   `yaml:"logger"`
		JWT      JWTConfig      `yaml:"jwt"`
		I18n     I18nConfig     `yaml:"i18n"`
		Redis    RedisConfig    `yaml:"redis"`
		Cache    CacheConfig    `yaml:"cache"`
		Dispatch DispatchConfig `yaml:"dispatch"`
		Provider ProviderConfig `yaml:"provider"`
		Metrics  MetricsConfig  `yaml:"metrics"`
		Tracing  trace.Config   `yaml:"tracing"`
	}

	// ServerConfig controls the HTTP listener
	ServerConfig struct {
		Port            int           `yaml:"port"`
		Mode            string        `yaml:"mode"` // debug, release, test
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	}

	// I18nConfig represents the internationalization configuration
	I18nConfig struct {
		Path        string `yaml:"path"`         // optional directory with extra translation files
		DefaultLang string `yaml:"default_lang"` // en or pt
	}

	DatabaseConfig struct {
		Type     string `yaml:"type"`     // mysql, postgres, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
		User     string `yaml:"user"`     // root (for mysql), postgres (for postgres)
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (for postgres)
	}

	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// DispatchConfig controls the background dispatch orchestrator
	DispatchConfig struct {
		// DefaultSendTimeout is the pacing delay used when a message does not set one
		DefaultSendTimeout time.Duration `yaml:"default_send_timeout"`
		// SchedulerInterval is how often scheduled messages are polled; zero disables the scheduler
		SchedulerInterval time.Duration `yaml:"scheduler_interval"`
		// ResumeOnStart resumes messages left in the sending state by a previous process
		ResumeOnStart bool `yaml:"resume_on_start"`
	}

	// ProviderConfig selects the delivery provider
	ProviderConfig struct {
		Type      string                  `yaml:"type"` // simulated or evolution
		Simulated SimulatedProviderConfig `yaml:"simulated"`
		Evolution EvolutionProviderConfig `yaml:"evolution"`
	}

	SimulatedProviderConfig struct {
		Latency time.Duration `yaml:"latency"`
	}

	EvolutionProviderConfig struct {
		BaseURL  string        `yaml:"base_url"`
		APIKey   string        `yaml:"api_key"`
		Instance string        `yaml:"instance"`
		Timeout  time.Duration `yaml:"timeout"`
	}

	// CacheConfig controls the principal cache used by authenticated requests
	CacheConfig struct {
		Enabled      bool          `yaml:"enabled"`
		PrincipalTTL time.Duration `yaml:"principal_ttl"`
		MaxEntries   int           `yaml:"max_entries"`
	}

	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Path      string    `yaml:"path"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

func (c *APIServerConfig) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5235
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Type == "" {
		c.Database.Type = cnst.DBTypeSQLite
		if c.Database.DBName == "" {
			c.Database.DBName = "./data/crm.db"
		}
	}
	if c.JWT.Duration <= 0 {
		c.JWT.Duration = 24 * time.Hour
	}
	if c.I18n.DefaultLang == "" {
		c.I18n.DefaultLang = cnst.LangDefault
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "syncwave:crm:"
	}
	if c.Redis.LockTTL <= 0 {
		c.Redis.LockTTL = 10 * time.Minute
	}
	if c.Cache.PrincipalTTL <= 0 {
		c.Cache.PrincipalTTL = 30 * time.Second
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 10000
	}
	if c.Dispatch.DefaultSendTimeout <= 0 {
		c.Dispatch.DefaultSendTimeout = 2 * time.Second
	}
	if c.Provider.Type == "" {
		c.Provider.Type = cnst.ProviderSimulated
	}
	if c.Provider.Evolution.Timeout <= 0 {
		c.Provider.Evolution.Timeout = 30 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "syncwave_crm"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = cnst.AppName
	}
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case cnst.DBTypePostgres:
		return c.getPostgresDSN()
	case cnst.DBTypeMySQL:
		return c.getMySQLDSN()
	case cnst.DBTypeSQLite:
		// Ensure the directory for the SQLite database exists.
		// If the directory cannot be created, it's a fatal error.
		if c.DBName != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(c.DBName), 0755); err != nil {
				panic(fmt.Errorf("failed to create directory for sqlite database: %w", err))
			}
		}
		return c.DBName // For SQLite, DBName is the file path
	default:
		return ""
	}
}

// getPostgresDSN returns PostgreSQL connection string
func (c *DatabaseConfig) getPostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// getMySQLDSN returns MySQL connection string
func (c *DatabaseConfig) getMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
