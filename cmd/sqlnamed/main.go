// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Command sqlnamed generates the query functions declared with //sqlnamed
// directives in a Go package. It is meant to be run with go generate:
//
//	//go:generate go run github.com/canonical/sqlnamed/cmd/sqlnamed
//
// Usage:
//
//	sqlnamed [-dir dir] [-o file] [-root dir] [-verify-driver pgx|sqlite3] [-verify-dsn dsn] [-v]
//
// Checked queries are verified against the database at -verify-dsn, or
// $SQLNAMED_VERIFY_DSN, when one is given. Query files are relative to
// -root, or $SQLNAMED_ROOT, and default to the directory of the closest
// go.mod.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/canonical/sqlnamed/internal/gen"
)

func main() {
	os.Exit(run(os.Args[1:], os.Getenv, os.Stderr))
}

// run runs the command with the given arguments and environment, and
// returns its exit status.
func run(args []string, getenv func(string) string, stderr io.Writer) int {
	logger := log.New(stderr, "sqlnamed: ", 0)

	flags := flag.NewFlagSet("sqlnamed", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		dir          = flags.String("dir", ".", "package `directory` holding the directives")
		output       = flags.String("o", gen.DefaultOutput, "name of the generated `file`")
		root         = flags.String("root", getenv("SQLNAMED_ROOT"), "`directory` query files are relative to")
		verifyDriver = flags.String("verify-driver", envOr(getenv, "SQLNAMED_VERIFY_DRIVER", "pgx"), "`driver` of the verification database, pgx or sqlite3")
		verifyDSN    = flags.String("verify-dsn", getenv("SQLNAMED_VERIFY_DSN"), "`dsn` of the database checked queries are verified against")
		verbose      = flags.Bool("v", false, "report progress")
	)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: sqlnamed [flags]\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() > 0 {
		flags.Usage()
		return 2
	}

	cfg := gen.Config{
		Root:         *root,
		Output:       *output,
		VerifyDriver: *verifyDriver,
		VerifyDSN:    *verifyDSN,
	}
	if *verbose {
		cfg.Logf = logger.Printf
		if file := getenv("GOFILE"); file != "" {
			logger.Printf("run by go generate from %s", file)
		}
	}

	err := gen.Generate(context.Background(), cfg, *dir)
	var diags gen.Diagnostics
	switch {
	case errors.As(err, &diags):
		// Diagnostics are printed without the prefix, as compilers do.
		for _, d := range diags {
			fmt.Fprintln(stderr, d)
		}
		return 1
	case err != nil:
		logger.Print(err)
		return 1
	}
	return 0
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}
