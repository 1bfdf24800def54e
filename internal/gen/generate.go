// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package gen

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/canonical/sqlnamed/internal/expr"
)

// DefaultOutput is the name of the generated file.
const DefaultOutput = "sqlnamed_gen.go"

// Config holds the settings of a generation run.
type Config struct {
	// Root is the directory query files are relative to. If empty, the
	// directory holding the closest go.mod is used.
	Root string
	// Output is the name of the generated file, written in the package
	// directory. It defaults to DefaultOutput.
	Output string
	// VerifyDriver and VerifyDSN select the database checked queries are
	// verified against. Queries are not verified if VerifyDSN is empty.
	VerifyDriver string
	VerifyDSN    string
	// Logf, if set, is called to report progress.
	Logf func(format string, args ...any)
}

func (cfg *Config) logf(format string, args ...any) {
	if cfg.Logf != nil {
		cfg.Logf(format, args...)
	}
}

// Diagnostic is an error located in a Go source file.
type Diagnostic struct {
	Pos token.Position
	Err error
}

func (d *Diagnostic) Error() string {
	msg := d.Err.Error()
	// The position of the diagnostic replaces the location in the
	// template or argument list.
	var e *expr.Error
	if errors.As(d.Err, &e) {
		msg = e.Msg
	}
	if !d.Pos.IsValid() {
		return msg
	}
	return d.Pos.String() + ": " + msg
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Diagnostics is the list of errors of a generation run, in source order.
type Diagnostics []*Diagnostic

func (ds Diagnostics) Error() string {
	var msgs []string
	for _, d := range ds {
		msgs = append(msgs, d.Error())
	}
	return strings.Join(msgs, "\n")
}

// Package is the parsed Go package holding the directives.
type Package struct {
	Name  string
	Dir   string
	Fset  *token.FileSet
	Files []*ast.File
}

// ParsePackage parses the non-test Go files of dir, skipping the file named
// output.
func ParsePackage(dir, output string) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "cannot read package directory %s", dir)
	}
	pkg := &Package{Dir: dir, Fset: token.NewFileSet()}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || name == output {
			continue
		}
		file, err := parser.ParseFile(pkg.Fset, filepath.Join(dir, name), nil, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, err
		}
		if pkg.Name == "" {
			pkg.Name = file.Name.Name
		} else if file.Name.Name != pkg.Name {
			return nil, pkgerrors.Errorf("found packages %s and %s in %s", pkg.Name, file.Name.Name, dir)
		}
		pkg.Files = append(pkg.Files, file)
	}
	if pkg.Name == "" {
		return nil, pkgerrors.Errorf("no Go files in %s", dir)
	}
	return pkg, nil
}

// Generate writes the queries declared in the package in dir to the output
// file of the package. If any directive is invalid, nothing is written and
// the errors are returned as Diagnostics.
func Generate(ctx context.Context, cfg Config, dir string) error {
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	pkg, err := ParsePackage(dir, cfg.Output)
	if err != nil {
		return err
	}
	if cfg.Root == "" {
		if cfg.Root, err = FindRoot(dir); err != nil {
			return err
		}
	}

	var v Verifier
	if cfg.VerifyDSN != "" {
		if v, err = NewVerifier(ctx, cfg.VerifyDriver, cfg.VerifyDSN); err != nil {
			return err
		}
		defer v.Close()
	}

	out, err := build(ctx, &cfg, pkg, v)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, cfg.Output)
	if err := os.WriteFile(path, out, 0644); err != nil {
		return pkgerrors.Wrapf(err, "cannot write %s", path)
	}
	cfg.logf("wrote %s", path)
	return nil
}

// build returns the source of the generated file of pkg. Queries are
// verified with v if it is not nil.
func build(ctx context.Context, cfg *Config, pkg *Package, v Verifier) ([]byte, error) {
	var diags Diagnostics
	report := func(pos token.Pos, err error) {
		diags = append(diags, &Diagnostic{Pos: pkg.Fset.Position(pos), Err: err})
	}

	var queries []Query
	var imps []Import
	declared := map[string]bool{}
	for _, file := range pkg.Files {
		ds, errs := FindDirectives(file)
		for _, err := range errs {
			var de *DirectiveError
			if errors.As(err, &de) {
				report(de.Pos, de)
			} else {
				report(file.Package, err)
			}
		}
		if len(ds) == 0 {
			continue
		}
		imps = append(imps, fileImports(file)...)
		for _, d := range ds {
			if declared[d.Name] {
				report(d.Pos(), fmt.Errorf("query %s declared more than once", d.Name))
				continue
			}
			declared[d.Name] = true

			q, pos, err := resolve(cfg, d)
			if err != nil {
				report(pos, err)
				continue
			}
			if v != nil && d.Variant.Checked() {
				if err := verify(ctx, v, q); err != nil {
					report(d.Pos(), err)
					continue
				}
			}
			cfg.logf("%s: %s %s", pkg.Fset.Position(d.Pos()), d.Variant.Name, d.Name)
			queries = append(queries, q)
		}
	}
	if len(diags) > 0 {
		sort.SliceStable(diags, func(i, j int) bool {
			a, b := diags[i].Pos, diags[j].Pos
			if a.Filename != b.Filename {
				return a.Filename < b.Filename
			}
			return a.Offset < b.Offset
		})
		return nil, diags
	}
	return Emit(pkg.Name, queries, imps)
}

// resolve binds the arguments of the directive to its SQL. On error, it
// returns the position the error is about.
func resolve(cfg *Config, d *Directive) (Query, token.Pos, error) {
	sql := d.Source
	sqlPos := d.sourcePos
	if d.Variant.File {
		var err error
		if sql, err = readQueryFile(cfg.Root, d.Source); err != nil {
			return Query{}, d.sourcePos(0), err
		}
		// Errors in the query file are reported at the path.
		sqlPos = func(int) token.Pos { return d.sourcePos(0) }
	}

	t, err := expr.ParseTemplate(sql)
	if err != nil {
		return Query{}, exprPos(err, sqlPos, d.Pos()), err
	}
	raw, err := expr.ParseArgs(d.Args)
	if err != nil {
		return Query{}, exprPos(err, d.argsPos, d.Pos()), err
	}
	b, err := expr.Resolve(t, expr.Normalize(raw))
	if err != nil {
		if errors.Is(err, expr.ErrUnknownArgument) {
			return Query{}, exprPos(err, sqlPos, d.Pos()), err
		}
		return Query{}, exprPos(err, d.argsPos, d.argsPos(0)), err
	}
	return Query{Name: d.Name, Params: d.Params, Variant: d.Variant, Type: d.Type, Binding: b}, token.NoPos, nil
}

// exprPos returns the position of the span of an expr.Error, using pos to
// map offsets, or def if the error has no span.
func exprPos(err error, pos func(int) token.Pos, def token.Pos) token.Pos {
	var e *expr.Error
	if !errors.As(err, &e) || e.Span.IsZero() {
		return def
	}
	return pos(e.Span.Start)
}

// fileImports returns the imports of file, for the generated code to use
// the same package names.
func fileImports(file *ast.File) []Import {
	var imps []Import
	for _, spec := range file.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		imp := Import{Path: path}
		if spec.Name != nil {
			imp.Name = spec.Name.Name
		}
		imps = append(imps, imp)
	}
	return imps
}
