// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package gen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/canonical/sqlnamed/internal/expr"
)

// RuntimePath is the import path of the package running the generated
// queries.
const RuntimePath = "github.com/canonical/sqlnamed"

// Query is a resolved directive, ready to be emitted.
type Query struct {
	// Name is the name of the generated function.
	Name string
	// Params is the parameter list of the generated function.
	Params  string
	Variant Variant
	// Type is the result type of the query_as and query_scalar variants.
	Type    string
	Binding *expr.Binding
}

// Import is an import of the generated file.
type Import struct {
	// Name is the local name of the package, "" for the default one.
	Name string
	Path string
}

func (imp Import) String() string {
	if imp.Name == "" {
		return strconv.Quote(imp.Path)
	}
	return imp.Name + " " + strconv.Quote(imp.Path)
}

// Emit returns the Go source of a file of package pkg declaring a function
// for each query. Any import of imps that is not needed is dropped.
func Emit(pkg string, queries []Query, imps []Import) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by sqlnamed. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkg)

	all := []Import{{Path: "context"}, {Path: RuntimePath}}
	seen := map[Import]bool{}
	for _, imp := range imps {
		if imp.Path == "context" || imp.Path == RuntimePath || imp.Name == "_" || imp.Name == "." || seen[imp] {
			continue
		}
		seen[imp] = true
		all = append(all, imp)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	fmt.Fprintf(&buf, "import (\n")
	for _, imp := range all {
		fmt.Fprintf(&buf, "\t%s\n", imp)
	}
	fmt.Fprintf(&buf, ")\n")

	for _, q := range queries {
		buf.WriteString("\n")
		emitQuery(&buf, q)
	}

	out, err := imports.Process("", buf.Bytes(), &imports.Options{Comments: true, TabIndent: true, TabWidth: 8})
	if err != nil {
		return nil, fmt.Errorf("cannot format generated code: %w", err)
	}
	return out, nil
}

func emitQuery(buf *bytes.Buffer, q Query) {
	params := "ctx context.Context, q sqlnamed.Querier"
	if q.Params != "" {
		params += ", " + q.Params
	}
	fmt.Fprintf(buf, "func %s(%s) %s {\n", q.Name, params, q.Variant.resultType(q.Type))
	args := []string{"ctx", "q", sqlLiteral(q.Binding.SQL)}
	for _, a := range q.Binding.Args {
		args = append(args, convert(a))
	}
	fmt.Fprintf(buf, "\treturn %s(%s)\n", q.Variant.call(q.Type), strings.Join(args, ", "))
	fmt.Fprintf(buf, "}\n")
}

// sqlLiteral returns the Go string literal of the SQL. Multi-line SQL is
// kept readable in a raw string when possible.
func sqlLiteral(sql string) string {
	if strings.Contains(sql, "\n") && !strings.ContainsAny(sql, "`\r") {
		return "`" + sql + "`"
	}
	return strconv.Quote(sql)
}

// convert returns the expression passing the bound value, converted to its
// type if it has one.
func convert(a expr.BoundArg) string {
	if a.Type == "" || a.Type == "_" {
		return a.Value
	}
	if needsParens(a.Type) {
		return "(" + a.Type + ")(" + a.Value + ")"
	}
	return a.Type + "(" + a.Value + ")"
}

// needsParens reports whether the type has to be parenthesized to be used
// in a conversion, e.g. "*T" or "func()".
func needsParens(typ string) bool {
	x, err := parser.ParseExpr(typ)
	if err != nil {
		return true
	}
	switch x.(type) {
	case *ast.Ident, *ast.SelectorExpr, *ast.IndexExpr, *ast.IndexListExpr,
		*ast.ArrayType, *ast.MapType, *ast.ParenExpr:
		return false
	}
	return true
}
