package sqlstore

import (
	"fmt"
	"time"
)

// Dialect selects the SQL flavour and driver
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Config holds SQL store connection settings
type Config struct {
	Dialect Dialect
	// DSN is a file path (or ":memory:") for sqlite and a connection URL for postgres
	DSN string

	MaxOpenConns int
	PingTimeout  time.Duration
}

// DefaultConfig returns defaults for an on-disk SQLite database
func DefaultConfig() Config {
	return Config{
		Dialect:      DialectSQLite,
		DSN:          "nsms.db",
		MaxOpenConns: 10,
		PingTimeout:  5 * time.Second,
	}
}

func (d Dialect) driverName() (string, error) {
	switch d {
	case DialectSQLite:
		return "sqlite", nil
	case DialectPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", d)
	}
}
