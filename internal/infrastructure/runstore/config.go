// Package runstore records training runs, their episodes and checkpoints in
// SQLite or PostgreSQL.
package runstore

import (
	"fmt"
	"os"
)

// Driver names a database/sql driver supported by the store.
type Driver string

const (
	// DriverSQLite uses modernc.org/sqlite.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres uses github.com/lib/pq.
	DriverPostgres Driver = "postgres"
)

// Config configures the run store.
type Config struct {
	// Driver selects the database.
	Driver Driver `json:"driver"`

	// DSN is the SQLite path or a PostgreSQL connection string. When empty
	// with the postgres driver, the connection fields below are used.
	DSN string `json:"dsn"`

	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"-"`
	Database string `json:"database,omitempty"`
	SSL      bool   `json:"ssl,omitempty"`
}

// DefaultConfig returns a file-backed SQLite configuration.
func DefaultConfig() Config {
	return Config{
		Driver: DriverSQLite,
		DSN:    "addis-trans.db",
	}
}

// dataSource resolves the driver name and connection string. Missing
// PostgreSQL settings fall back to PGHOST, PGUSER, PGPASSWORD and PGDATABASE.
func (c Config) dataSource() (string, string, error) {
	switch c.Driver {
	case DriverSQLite, "":
		dsn := c.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		return string(DriverSQLite), dsn, nil

	case DriverPostgres:
		if c.DSN != "" {
			return string(DriverPostgres), c.DSN, nil
		}
		if c.Host == "" {
			c.Host = getEnvOrDefault("PGHOST", "localhost")
		}
		if c.Port == 0 {
			c.Port = 5432
		}
		if c.User == "" {
			c.User = getEnvOrDefault("PGUSER", "postgres")
		}
		if c.Password == "" {
			c.Password = os.Getenv("PGPASSWORD")
		}
		if c.Database == "" {
			c.Database = getEnvOrDefault("PGDATABASE", "addis_trans")
		}
		return string(DriverPostgres), buildConnectionString(c), nil

	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, c.Driver)
	}
}

// buildConnectionString constructs a PostgreSQL connection string.
func buildConnectionString(c Config) string {
	sslMode := "disable"
	if c.SSL {
		sslMode = "require"
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, sslMode,
	)

	if c.Password != "" {
		connStr += fmt.Sprintf(" password=%s", c.Password)
	}

	return connStr
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
