// Package sqlite provides the SQLite-backed persistent store built on the
// pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"taskcore/internal/infra/persistence/sqlstore"
	"taskcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

//go:embed schema.sql
var schema string

// Dialect is the SQLite flavour of the shared SQL store.
var Dialect = sqlstore.Dialect{Name: "sqlite", Schema: schema}

const defaultPath = "taskcore.db"

// pragmas enable foreign key enforcement on every connection and start write
// transactions with an immediate lock.
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

// Store persists the domain to a SQLite database file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-process database.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	store := &Store{Store: sqlstore.New(db, Dialect, engine), path: path}
	if err := store.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + pragmas
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }
