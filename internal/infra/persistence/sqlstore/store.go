package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskcore/pkg/domain"
)

var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
	_ domain.TransactionView = reader{}
)

// Store is a domain.PersistentStore over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	engine  *domain.RulesEngine
}

// New wraps an open database. It does not apply the schema; call Migrate.
func New(db *sql.DB, dialect Dialect, engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{db: db, dialect: dialect, engine: engine}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the dialect the store was built with.
func (s *Store) Dialect() Dialect { return s.dialect }

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *domain.RulesEngine { return s.engine }

// Migrate applies the dialect schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if err := ApplySchema(ctx, s.db, s.dialect.Schema); err != nil {
		return fmt.Errorf("migrate %s: %w", s.dialect.Name, err)
	}
	return nil
}

// RunInTransaction executes fn inside one database transaction. The
// transaction commits only when fn, rule evaluation and the context all
// succeed; otherwise every write is rolled back.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Result{}, fmt.Errorf("begin %s transaction: %w", s.dialect.Name, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	tx := &transaction{reader: reader{ctx: ctx, q: sqlTx, d: s.dialect}}
	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	result, err := s.engine.Evaluate(ctx, tx.reader, tx.changes)
	if err != nil {
		return domain.Result{}, err
	}
	if result.HasBlocking() {
		return result, domain.RuleViolationError{Result: result}
	}
	if err := ctx.Err(); err != nil {
		return domain.Result{}, fmt.Errorf("commit aborted: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) && ctx.Err() != nil {
			return domain.Result{}, fmt.Errorf("commit aborted: %w", ctx.Err())
		}
		return domain.Result{}, fmt.Errorf("commit %s transaction: %w", s.dialect.Name, err)
	}
	committed = true
	tx.tokens.Apply()
	return result, nil
}

// viewOptions give every read in one View the same snapshot.
var viewOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// View runs fn against one snapshot of committed state inside a read-only
// transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sqlTx, err := s.db.BeginTx(ctx, viewOptions)
	if err != nil {
		return fmt.Errorf("begin %s read: %w", s.dialect.Name, err)
	}
	defer func() { _ = sqlTx.Rollback() }()
	return fn(reader{ctx: ctx, q: sqlTx, d: s.dialect})
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}
