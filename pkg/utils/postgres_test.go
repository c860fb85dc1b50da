package utils

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
)

// fakeTxDriver backs the WithTx tests without a running database. Only the
// transaction surface is implemented.
type fakeTxDriver struct {
	conn *fakeTxConn
}

func (d *fakeTxDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type fakeTxConn struct {
	commits   int
	rollbacks int
}

func (c *fakeTxConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("not implemented")
}
func (c *fakeTxConn) Close() error              { return nil }
func (c *fakeTxConn) Begin() (driver.Tx, error) { return &fakeTxHandle{conn: c}, nil }

type fakeTxHandle struct{ conn *fakeTxConn }

func (t *fakeTxHandle) Commit() error   { t.conn.commits++; return nil }
func (t *fakeTxHandle) Rollback() error { t.conn.rollbacks++; return nil }

var txDriver = &fakeTxDriver{}

func init() { sql.Register("faketx", txDriver) }

func newTxDB(t *testing.T) (*sql.DB, *fakeTxConn) {
	t.Helper()
	conn := &fakeTxConn{}
	txDriver.conn = conn
	db, err := sql.Open("faketx", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, conn
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db, conn := newTxDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.commits != 1 || conn.rollbacks != 0 {
		t.Fatalf("expected commit, got commits=%d rollbacks=%d", conn.commits, conn.rollbacks)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, conn := newTxDB(t)

	boom := errors.New("boom")
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error back, got %v", err)
	}
	if conn.commits != 0 || conn.rollbacks != 1 {
		t.Fatalf("expected rollback, got commits=%d rollbacks=%d", conn.commits, conn.rollbacks)
	}
}

func TestWithTx_RollsBackAndRethrowsPanic(t *testing.T) {
	db, conn := newTxDB(t)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic to propagate")
		}
		if conn.commits != 0 || conn.rollbacks != 1 {
			t.Fatalf("expected rollback, got commits=%d rollbacks=%d", conn.commits, conn.rollbacks)
		}
	}()
	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		panic("boom")
	})
}
