package storage

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// ConnParams describes a postgres or mysql server when no DSN is given.
type ConnParams struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// BuildDSN builds a connection string for dialect from p.
func BuildDSN(dialect Dialect, p ConnParams) (string, error) {
	switch dialect {
	case DialectPostgres:
		return buildPostgresDSN(p), nil
	case DialectMySQL:
		return buildMySQLDSN(p), nil
	default:
		return "", fmt.Errorf("no DSN builder for driver %q", dialect)
	}
}

func buildPostgresDSN(p ConnParams) string {
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, port, p.User, p.Password, p.Database, sslMode,
	)
}

func buildMySQLDSN(p ConnParams) string {
	port := p.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		p.User, p.Password, p.Host, port, p.Database,
	)
	if p.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
