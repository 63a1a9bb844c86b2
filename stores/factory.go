package stores

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoreConfig holds configuration for the trace store.
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite" or "postgres"
	Connection string            `json:"connection"` // file path or DSN
	Options    map[string]string `json:"options"`
}

// NewStoreConfig creates a new store configuration.
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration. The "log" option
// set to "info" turns on GORM's SQL logging.
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}

// NewTraceStore opens the configured database and returns a migrated trace
// store.
func NewTraceStore(config *StoreConfig) (*GORMTraceStore, error) {
	dialector, err := openDialector(config)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Silent
	if config.Options["log"] == "info" {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", config.Type, err)
	}
	return NewGORMTraceStore(db)
}

func openDialector(config *StoreConfig) (gorm.Dialector, error) {
	switch config.Type {
	case "sqlite":
		path := config.Connection
		if path == "" {
			path = DefaultSQLitePath
		}
		return sqlite.Open(path), nil
	case "postgres":
		if config.Connection == "" {
			return nil, fmt.Errorf("postgres trace store needs a DSN")
		}
		return postgres.Open(config.Connection), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// DefaultSQLitePath is used when a sqlite store is configured without a path.
const DefaultSQLitePath = "outreach_traces.sqlite"

// PostgresDSN builds a key/value DSN for the postgres driver.
func PostgresDSN(host, user, password, dbname string, port int) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
}
