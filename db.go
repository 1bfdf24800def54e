// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlnamed

import (
	"context"
	"database/sql"
	"sync/atomic"
)

var ErrTXDone = sql.ErrTxDone

// DB wraps a [sql.DB] and caches the statements prepared on it. It
// implements [Querier].
type DB struct {
	// sqldb is the underlying database/sql DB object.
	sqldb *sql.DB
	stmts *statementCache
}

// NewDB creates a new [DB] from a [sql.DB] caching up to
// [DefaultStatementCacheSize] prepared statements.
func NewDB(sqldb *sql.DB) *DB {
	if sqldb == nil {
		return nil
	}
	db, err := NewDBWithCache(sqldb, DefaultStatementCacheSize)
	if err != nil {
		// The default size is positive.
		panic(err)
	}
	return db
}

// NewDBWithCache creates a new [DB] from a [sql.DB] caching up to size
// prepared statements. The size must be positive.
func NewDBWithCache(sqldb *sql.DB, size int) (*DB, error) {
	stmts, err := newStatementCache(size)
	if err != nil {
		return nil, err
	}
	return &DB{sqldb: sqldb, stmts: stmts}, nil
}

// PlainDB returns the underlying database object.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

// QueryContext runs the query on a statement prepared on the database,
// preparing and caching it first if needed.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	cs, err := db.stmts.acquire(ctx, db.sqldb, query)
	if err != nil {
		return nil, err
	}
	// The rows keep the statement open once it is released.
	defer db.stmts.release(cs)
	return cs.stmt.QueryContext(ctx, args...)
}

// ExecContext runs the query on a statement prepared on the database,
// preparing and caching it first if needed.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	cs, err := db.stmts.acquire(ctx, db.sqldb, query)
	if err != nil {
		return nil, err
	}
	defer db.stmts.release(cs)
	return cs.stmt.ExecContext(ctx, args...)
}

// Close closes every cached statement and then the database.
func (db *DB) Close() error {
	db.stmts.purge()
	return db.sqldb.Close()
}

// TX represents a transaction on the database. It implements [Querier].
type TX struct {
	sqltx *sql.Tx
	db    *DB
	done  int32
}

func (tx *TX) isDone() bool {
	return atomic.LoadInt32(&tx.done) == 1
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// Begin starts a transaction. A transaction must be ended
// with a [TX.Commit] or [TX.Rollback].
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sqltx, err := db.sqldb.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, err
	}
	return &TX{sqltx: sqltx, db: db}, nil
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	return err
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}

// QueryContext runs the query in the transaction. A query executed on a
// transaction reuses the statement cached on the database if there is one,
// but it does not prepare one if there is not.
func (tx *TX) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if tx.isDone() {
		return nil, ErrTXDone
	}
	if cs, ok := tx.db.stmts.lookup(query); ok {
		defer tx.db.stmts.release(cs)
		// The txstmt is closed by database/sql when the transaction is
		// committed or rolled back.
		return tx.sqltx.StmtContext(ctx, cs.stmt).QueryContext(ctx, args...)
	}
	return tx.sqltx.QueryContext(ctx, query, args...)
}

// ExecContext runs the query in the transaction, see [TX.QueryContext].
func (tx *TX) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx.isDone() {
		return nil, ErrTXDone
	}
	if cs, ok := tx.db.stmts.lookup(query); ok {
		defer tx.db.stmts.release(cs)
		return tx.sqltx.StmtContext(ctx, cs.stmt).ExecContext(ctx, args...)
	}
	return tx.sqltx.ExecContext(ctx, query, args...)
}
