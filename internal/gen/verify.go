// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package gen

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Verifier prepares queries on a database to check them.
type Verifier interface {
	// NumParams prepares the query and returns the number of parameters it
	// takes.
	NumParams(ctx context.Context, query string) (int, error)
	Close() error
}

// NewVerifier connects to the database at dsn with the named driver,
// "pgx" or "sqlite3".
func NewVerifier(ctx context.Context, driver, dsn string) (Verifier, error) {
	switch driver {
	case "pgx", "postgres":
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "cannot connect to verification database")
		}
		return &pgxVerifier{conn: conn}, nil
	case "sqlite3", "sqlite":
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "cannot open verification database")
		}
		conn, err := db.Conn(ctx)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "cannot connect to verification database")
		}
		return &sqliteVerifier{db: db, conn: conn}, nil
	}
	return nil, errors.Errorf("unknown verification driver %q, want pgx or sqlite3", driver)
}

// pgxVerifier verifies queries against PostgreSQL. The statement
// description sent back by the server lists the parameter types.
type pgxVerifier struct {
	conn *pgx.Conn
}

func (v *pgxVerifier) NumParams(ctx context.Context, query string) (int, error) {
	// The unnamed statement is replaced by each Prepare.
	sd, err := v.conn.Prepare(ctx, "", query)
	if err != nil {
		return 0, err
	}
	return len(sd.ParamOIDs), nil
}

func (v *pgxVerifier) Close() error {
	return v.conn.Close(context.Background())
}

// sqliteVerifier verifies queries against SQLite. Statements are prepared
// on the driver connection to get their parameter count.
type sqliteVerifier struct {
	db   *sql.DB
	conn *sql.Conn
}

func (v *sqliteVerifier) NumParams(ctx context.Context, query string) (int, error) {
	var n int
	err := v.conn.Raw(func(dc any) error {
		c, ok := dc.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("internal error: driver connection is %T, not SQLite", dc)
		}
		stmt, err := c.Prepare(query)
		if err != nil {
			return err
		}
		n = stmt.NumInput()
		return stmt.Close()
	})
	return n, err
}

func (v *sqliteVerifier) Close() error {
	err := v.conn.Close()
	if cerr := v.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// verify checks that the query can be prepared on the database and takes
// one parameter per bound value.
func verify(ctx context.Context, v Verifier, q Query) error {
	n, err := v.NumParams(ctx, q.Binding.SQL)
	if err != nil {
		return fmt.Errorf("cannot prepare query: %w", err)
	}
	if n != len(q.Binding.Args) {
		return fmt.Errorf("query takes %d parameters, %d arguments given", n, len(q.Binding.Args))
	}
	return nil
}
