// Package sqlstore implements the postconfirm sender store and message
// stash over database/sql, with the backend selected by an explicit Driver
// name rather than by the DSN's form.
package sqlstore

import (
	_ "github.com/go-sql-driver/mysql" // registers "mysql"
	_ "github.com/lib/pq"              // registers "postgres"
	_ "github.com/mattn/go-sqlite3"    // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"             // registers "sqlite" (pure Go)
)

// Driver names the SQL backend behind the store/stash. It is distinct from
// the registered database/sql driver name: "sqlite" and "sqlite3" both map
// to the SQLite dialect but are registered by two different Go drivers, so
// an operator can pick either one.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
	DriverSQLite3  Driver = "sqlite3"
)

func (d Driver) sqlDriverName() string {
	return string(d)
}

func (d Driver) dialectFor() dialect {
	switch d {
	case DriverPostgres:
		return postgresDialect
	case DriverMySQL:
		return mysqlDialect
	case DriverSQLite, DriverSQLite3:
		return sqliteDialect
	default:
		return sqliteDialect
	}
}
