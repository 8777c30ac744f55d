package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var driverCounter uint64

type txCounts struct {
	commits   int64
	rollbacks int64
}

type countingDriver struct {
	counts *txCounts
}

func (d *countingDriver) Open(string) (driver.Conn, error) {
	return &countingConn{counts: d.counts}, nil
}

type countingConn struct {
	counts *txCounts
}

func (c *countingConn) Prepare(string) (driver.Stmt, error) {
	return &noopStmt{}, nil
}

func (c *countingConn) Close() error {
	return nil
}

func (c *countingConn) Begin() (driver.Tx, error) {
	return &countingTx{counts: c.counts}, nil
}

func (c *countingConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return &countingTx{counts: c.counts}, nil
}

type countingTx struct {
	counts *txCounts
}

func (t *countingTx) Commit() error {
	atomic.AddInt64(&t.counts.commits, 1)
	return nil
}

func (t *countingTx) Rollback() error {
	atomic.AddInt64(&t.counts.rollbacks, 1)
	return nil
}

type noopStmt struct{}

func (s *noopStmt) Close() error {
	return nil
}

func (s *noopStmt) NumInput() int {
	return -1
}

func (s *noopStmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, nil
}

func (s *noopStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, nil
}

type conflictState struct {
	commitCalls int64
	failCommits int64
	failCode    string
}

type conflictDriver struct {
	state *conflictState
}

func (d *conflictDriver) Open(string) (driver.Conn, error) {
	return &conflictConn{state: d.state}, nil
}

type conflictConn struct {
	state *conflictState
}

func (c *conflictConn) Prepare(string) (driver.Stmt, error) {
	return &noopStmt{}, nil
}

func (c *conflictConn) Close() error {
	return nil
}

func (c *conflictConn) Begin() (driver.Tx, error) {
	return &conflictTx{state: c.state}, nil
}

func (c *conflictConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return &conflictTx{state: c.state}, nil
}

type conflictTx struct {
	state *conflictState
}

func (t *conflictTx) Commit() error {
	call := atomic.AddInt64(&t.state.commitCalls, 1)
	if call <= t.state.failCommits {
		code := t.state.failCode
		if code == "" {
			code = "40001"
		}
		return &pq.Error{Code: pq.ErrorCode(code)}
	}
	return nil
}

func (t *conflictTx) Rollback() error {
	return nil
}

func openTestDB(t *testing.T, d driver.Driver) *sqlx.DB {
	t.Helper()
	name := fmt.Sprintf("splitbook-test-%d", atomic.AddUint64(&driverCounter, 1))
	sql.Register(name, d)
	sqlDB, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlx.NewDb(sqlDB, name)
}

func TestWithTxCommits(t *testing.T) {
	counts := &txCounts{}
	xdb := openTestDB(t, &countingDriver{counts: counts})
	if err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.commits != 1 || counts.rollbacks != 0 {
		t.Fatalf("expected commit=1 rollback=0, got %d/%d", counts.commits, counts.rollbacks)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	counts := &txCounts{}
	xdb := openTestDB(t, &countingDriver{counts: counts})
	if err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return errors.New("boom") }); err == nil {
		t.Fatalf("expected error")
	}
	if counts.rollbacks != 1 {
		t.Fatalf("expected rollback=1, got %d", counts.rollbacks)
	}
}

func TestWithTxRetriesOnSerializationConflict(t *testing.T) {
	state := &conflictState{failCommits: 1}
	xdb := openTestDB(t, &conflictDriver{state: state})
	if err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.commitCalls != 2 {
		t.Fatalf("expected 2 commit attempts, got %d", state.commitCalls)
	}
}

func TestWithTxGivesUpAfterRetryCap(t *testing.T) {
	state := &conflictState{failCommits: 10, failCode: "40P01"}
	xdb := openTestDB(t, &conflictDriver{state: state})
	if err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return nil }); err == nil {
		t.Fatalf("expected retry limit error")
	}
	if state.commitCalls != 5 {
		t.Fatalf("expected 5 commit attempts, got %d", state.commitCalls)
	}
}
