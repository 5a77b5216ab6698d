package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// stubConn is an in-memory database/sql connection that understands the few
// statements the audit store issues.
type stubConn struct {
	mu        sync.Mutex
	execs     []string
	rows      [][]driver.Value
	failPing  bool
	failExec  bool
	failQuery bool
	rowsErr   error
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{}
	name := fmt.Sprintf("stubaudit%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, fmt.Errorf("not implemented") }

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	if c.failExec {
		return nil, fmt.Errorf("exec fail")
	}
	if strings.HasPrefix(strings.TrimSpace(query), "INSERT INTO load_reports") {
		if len(args) != 4 {
			return nil, fmt.Errorf("expected 4 args, got %d", len(args))
		}
		id := int64(len(c.rows) + 1)
		c.rows = append(c.rows, []driver.Value{id, args[2].Value, args[3].Value})
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failQuery {
		return nil, fmt.Errorf("query fail")
	}
	if !strings.Contains(query, "ORDER BY id DESC") {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	out := make([][]driver.Value, 0, len(c.rows))
	for i := len(c.rows) - 1; i >= 0; i-- {
		out = append(out, c.rows[i])
	}
	if len(args) == 1 {
		if n, ok := args[0].Value.(int64); ok && int(n) < len(out) {
			out = out[:n]
		}
	}
	return &stubRows{rows: out, err: c.rowsErr}, nil
}

type stubRows struct {
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return []string{"id", "ok", "payload"} }
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
