package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ietf-svn-conversion/postconfirm/framework/log"
)

func (b *Backend) ensureSchema(ctx context.Context) error {
	d := b.dialect
	for _, sendersTable := range []string{"senders", "senders_static"} {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			sender TEXT NOT NULL,
			type CHAR(1) NOT NULL,
			action TEXT NOT NULL,
			ref TEXT NULL,
			source TEXT NULL,
			updated_at %s NULL,
			PRIMARY KEY (sender, type)
		)`, sendersTable, d.timestampType)
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: create table %s: %w", sendersTable, err)
		}
	}

	for _, stashTable := range []string{"stash", "stash_static"} {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s,
			sender TEXT NOT NULL,
			recipients TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at %s %s
		)`, stashTable, d.autoIncrementPK, d.timestampType, d.nowDefault)
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: create table %s: %w", stashTable, err)
		}
	}

	return nil
}

// Open obtains a pooled *sql.DB handle for (driver, dsn), creates the schema
// if missing, and returns a ready Backend.
func Open(ctx context.Context, pool *DBPool, driver Driver, dsn string, logger log.Logger) (*Backend, error) {
	sqlDriverName := driver.sqlDriverName()

	db, err := pool.open(driver.sqlDriverName()+"://"+dsn, func() (*sql.DB, error) {
		d, err := sql.Open(sqlDriverName, dsn)
		if err != nil {
			return nil, err
		}
		if err := d.PingContext(ctx); err != nil {
			d.Close()
			return nil, err
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}

	b := &Backend{db: db, dialect: driver.dialectFor(), log: logger}
	if err := b.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return b, nil
}
