package sqlstore

import (
	"regexp"
	"strings"
)

// Driver identifies the database/sql driver behind a connection string
type Driver string

const (
	SQLite   Driver = "sqlite3"
	Postgres Driver = "postgres"
)

// DetectDriver determines the driver from the connection string. Postgres URLs
// and key/value DSNs select postgres; everything else is a SQLite file.
func DetectDriver(connectionString string) Driver {
	cs := strings.ToLower(strings.TrimSpace(connectionString))

	switch {
	case strings.HasPrefix(cs, "postgres://"),
		strings.HasPrefix(cs, "postgresql://"),
		strings.Contains(cs, "host="):
		return Postgres
	default:
		return SQLite
	}
}

// sqliteDSN adds the pragmas the service relies on when none were given
func sqliteDSN(connectionString string) string {
	if strings.Contains(connectionString, "?") {
		return connectionString
	}
	return connectionString + "?_busy_timeout=5000&_foreign_keys=on"
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites $N placeholders into the form the driver expects
func (d Driver) Rebind(query string) string {
	if d == SQLite {
		return placeholder.ReplaceAllString(query, "?$1")
	}
	return query
}
