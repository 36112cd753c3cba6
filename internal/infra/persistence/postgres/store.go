// Package postgres provides the Postgres-backed persistent store. It shares
// the SQL store implementation and applies its schema on startup.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	"taskcore/internal/infra/persistence/sqlstore"
	"taskcore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

//go:embed schema.sql
var schema string

// Dialect is the Postgres flavour of the shared SQL store.
var Dialect = sqlstore.Dialect{Name: "postgres", Schema: schema, Numbered: true}

const (
	defaultDriver = "pgx"
	// Default DSN used when neither config nor env supplies one.
	defaultDSN = "postgres://localhost/taskcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists the domain to Postgres.
type Store struct {
	*sqlstore.Store
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), checks connectivity and applies the schema.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := &Store{Store: sqlstore.New(db, Dialect, engine)}
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
