package sqlstore

import (
	"database/sql"

	"github.com/ietf-svn-conversion/postconfirm/framework/log"
	"github.com/ietf-svn-conversion/postconfirm/framework/resource"
)

// DBPool shares *sql.DB handles across the process, keyed by "driver://dsn",
// so concurrent milter sessions against the same backend reuse one
// connection pool instead of racing to dial it.
type DBPool struct {
	singleton *resource.Singleton[*sql.DB]
}

// NewDBPool constructs an empty pool.
func NewDBPool(logger log.Logger) *DBPool {
	return &DBPool{singleton: resource.NewSingleton[*sql.DB](&logger)}
}

func (p *DBPool) open(key string, openFn func() (*sql.DB, error)) (*sql.DB, error) {
	return p.singleton.GetOpen(key, openFn)
}

// Close releases every pooled *sql.DB handle.
func (p *DBPool) Close() error {
	return p.singleton.Close()
}
