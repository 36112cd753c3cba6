// Package testutil provides a stub database for postgres store tests. It
// understands the narrow statement shapes the SQL store emits: single-table
// INSERT (with ON CONFLICT), UPDATE, DELETE and SELECT with equality
// predicates joined by AND. ORDER BY clauses are ignored.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// StubConn records statements and keeps rows in memory.
type StubConn struct {
	Execs      []string
	Tables     map[string][]map[string]any
	FailExec   bool
	FailBegin  bool
	RowsErr    error
	FailTables map[string]bool
	FailCommit bool
	Commits    int
	Rollbacks  int

	snapshot map[string][]map[string]any
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailExec {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx. Rollback restores the tables as they
// were at this point.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.snapshot = cloneTables(c.Tables)
	return &stubTx{conn: c}, nil
}

func cloneTables(in map[string][]map[string]any) map[string][]map[string]any {
	out := make(map[string][]map[string]any, len(in))
	for table, rows := range in {
		copied := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			r := make(map[string]any, len(row))
			for k, v := range row {
				r[k] = v
			}
			copied = append(copied, r)
		}
		out[table] = copied
	}
	return out
}

var (
	insertPattern = regexp.MustCompile(`(?is)^INSERT INTO (\w+) \(([^)]*)\)\s*VALUES \(([^)]*)\)(.*)$`)
	updatePattern = regexp.MustCompile(`(?is)^UPDATE (\w+) SET (.*) WHERE (.*)$`)
	deletePattern = regexp.MustCompile(`(?is)^DELETE FROM (\w+)(?: WHERE (.*))?$`)
	selectPattern = regexp.MustCompile(`(?is)^SELECT (.*?) FROM (\w+)(?: \w+)?(?: WHERE (.*?))?(?: ORDER BY .*)?$`)
	conflictKeys  = regexp.MustCompile(`(?is)ON CONFLICT \(([^)]*)\)`)
	andSplitter   = regexp.MustCompile(`(?i)\s+AND\s+`)
)

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	q := strings.TrimSpace(query)
	upper := strings.ToUpper(q)
	switch {
	case strings.HasPrefix(upper, "INSERT INTO"):
		return c.insert(q, args)
	case strings.HasPrefix(upper, "UPDATE"):
		return c.update(q, args)
	case strings.HasPrefix(upper, "DELETE FROM"):
		return c.delete(q, args)
	}
	return driver.RowsAffected(0), nil
}

func (c *StubConn) failing(table string) error {
	if c.FailTables != nil && c.FailTables[table] {
		return fmt.Errorf("exec fail for %s", table)
	}
	return nil
}

func (c *StubConn) insert(query string, args []driver.NamedValue) (driver.Result, error) {
	m := insertPattern.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table := strings.ToLower(m[1])
	if err := c.failing(table); err != nil {
		return nil, err
	}
	cols := splitColumns(m[2])
	vals := splitColumns(m[3])
	if len(cols) != len(vals) {
		return nil, fmt.Errorf("column/value mismatch for %s", table)
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		v, err := resolve(vals[i], args)
		if err != nil {
			return nil, err
		}
		row[col] = v
	}

	keys := cols[:1]
	tail := m[4]
	if km := conflictKeys.FindStringSubmatch(tail); km != nil {
		keys = splitColumns(km[1])
	}
	for i, existing := range c.Tables[table] {
		if !sameKey(existing, row, keys) {
			continue
		}
		upper := strings.ToUpper(tail)
		switch {
		case strings.Contains(upper, "DO NOTHING"):
			return driver.RowsAffected(0), nil
		case strings.Contains(upper, "DO UPDATE"):
			for col, v := range row {
				if !containsKey(keys, col) && col != "created_at" {
					existing[col] = v
				}
			}
			c.Tables[table][i] = existing
			return driver.RowsAffected(1), nil
		default:
			return nil, fmt.Errorf("duplicate key in %s", table)
		}
	}
	c.Tables[table] = append(c.Tables[table], row)
	return driver.RowsAffected(1), nil
}

func (c *StubConn) update(query string, args []driver.NamedValue) (driver.Result, error) {
	m := updatePattern.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("cannot parse update: %s", query)
	}
	table := strings.ToLower(m[1])
	if err := c.failing(table); err != nil {
		return nil, err
	}
	pred, err := predicate(m[3], args)
	if err != nil {
		return nil, err
	}
	var affected int64
	for _, row := range c.Tables[table] {
		if !pred(row) {
			continue
		}
		for _, assign := range splitColumns(m[2]) {
			col, expr, ok := strings.Cut(assign, "=")
			if !ok {
				return nil, fmt.Errorf("cannot parse assignment %q", assign)
			}
			col, expr = strings.TrimSpace(col), strings.TrimSpace(expr)
			if expr == col+" + 1" {
				n, _ := row[col].(int64)
				row[col] = n + 1
				continue
			}
			v, err := resolve(expr, args)
			if err != nil {
				return nil, err
			}
			row[col] = v
		}
		affected++
	}
	return driver.RowsAffected(affected), nil
}

func (c *StubConn) delete(query string, args []driver.NamedValue) (driver.Result, error) {
	m := deletePattern.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("cannot parse delete: %s", query)
	}
	table := strings.ToLower(m[1])
	if err := c.failing(table); err != nil {
		return nil, err
	}
	pred, err := predicate(m[2], args)
	if err != nil {
		return nil, err
	}
	var kept []map[string]any
	var affected int64
	for _, row := range c.Tables[table] {
		if pred(row) {
			affected++
			continue
		}
		kept = append(kept, row)
	}
	c.Tables[table] = kept
	return driver.RowsAffected(affected), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.Tables == nil {
		c.Tables = make(map[string][]map[string]any)
	}
	m := selectPattern.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil || strings.Contains(strings.ToUpper(query), " JOIN ") {
		return nil, fmt.Errorf("cannot parse select: %s", query)
	}
	table := strings.ToLower(m[2])
	if c.FailTables != nil && c.FailTables[table] {
		return nil, fmt.Errorf("query fail for %s", table)
	}
	pred, err := predicate(m[3], args)
	if err != nil {
		return nil, err
	}
	cols := splitColumns(m[1])
	var values [][]driver.Value
	for _, row := range c.Tables[table] {
		if !pred(row) {
			continue
		}
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			if n, err := strconv.ParseInt(col, 10, 64); err == nil {
				vals[i] = n
				continue
			}
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values, err: c.RowsErr}, nil
}

// predicate compiles "a = $1 AND b = $2" into a row filter.
func predicate(where string, args []driver.NamedValue) (func(map[string]any) bool, error) {
	where = strings.TrimSpace(where)
	if where == "" {
		return func(map[string]any) bool { return true }, nil
	}
	type cond struct {
		col string
		val any
	}
	var conds []cond
	for _, part := range andSplitter.Split(where, -1) {
		col, expr, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("cannot parse predicate %q", part)
		}
		v, err := resolve(strings.TrimSpace(expr), args)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond{col: unqualify(strings.TrimSpace(col)), val: v})
	}
	return func(row map[string]any) bool {
		for _, c := range conds {
			if row[c.col] != c.val {
				return false
			}
		}
		return true
	}, nil
}

// resolve maps $n to its argument and parses integer literals.
func resolve(expr string, args []driver.NamedValue) (any, error) {
	if strings.HasPrefix(expr, "$") {
		n, err := strconv.Atoi(expr[1:])
		if err != nil || n < 1 || n > len(args) {
			return nil, fmt.Errorf("bad placeholder %q", expr)
		}
		return args[n-1].Value, nil
	}
	if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return n, nil
	}
	return strings.Trim(expr, "'"), nil
}

func sameKey(a, b map[string]any, keys []string) bool {
	for _, k := range keys {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

func containsKey(keys []string, col string) bool {
	for _, k := range keys {
		if k == col {
			return true
		}
	}
	return false
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	t.conn.Commits++
	t.conn.snapshot = nil
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.Rollbacks++
	if t.conn.snapshot != nil {
		t.conn.Tables = t.conn.snapshot
		t.conn.snapshot = nil
	}
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func unqualify(col string) string {
	if _, after, ok := strings.Cut(col, "."); ok {
		return after
	}
	return col
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, unqualify(strings.ToLower(strings.TrimSpace(part))))
	}
	return out
}
