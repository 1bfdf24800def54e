package gen

import (
	"github.com/canonical/sqlnamed/internal/expr"
	. "gopkg.in/check.v1"
)

type EmitSuite struct{}

var _ = Suite(&EmitSuite{})

func mustVariant(c *C, name string) Variant {
	v, err := ParseVariant(name)
	c.Assert(err, IsNil)
	return v
}

func (s *EmitSuite) TestEmit(c *C) {
	b, err := expr.Expand("SELECT id, name FROM account WHERE id = $id AND team = $team", "id, team")
	c.Assert(err, IsNil)
	out, err := Emit("accounts", []Query{{
		Name:    "FindAccount",
		Params:  "id int64, team string",
		Variant: mustVariant(c, "query_as"),
		Type:    "Account",
		Binding: b,
	}}, nil)
	c.Assert(err, IsNil)
	c.Check(string(out), Equals, `// Code generated by sqlnamed. DO NOT EDIT.

package accounts

import (
	"context"

	"github.com/canonical/sqlnamed"
)

func FindAccount(ctx context.Context, q sqlnamed.Querier, id int64, team string) *sqlnamed.RecordQuery[Account] {
	return sqlnamed.QueryAs[Account](ctx, q, "SELECT id, name FROM account WHERE id = $1 AND team = $2", id, team)
}
`)
}

func (s *EmitSuite) TestEmitVariants(c *C) {
	b, err := expr.Expand("SELECT $1", "n")
	c.Assert(err, IsNil)
	var queries []Query
	for _, name := range []string{"query", "query_unchecked", "query_scalar", "query_scalar_unchecked", "query_as_unchecked"} {
		queries = append(queries, Query{Name: "Q_" + name, Params: "n int", Variant: mustVariant(c, name), Type: "int", Binding: b})
	}
	out, err := Emit("p", queries, nil)
	c.Assert(err, IsNil)
	for _, call := range []string{
		`func Q_query(ctx context.Context, q sqlnamed.Querier, n int) *sqlnamed.RowQuery {
	return sqlnamed.Query(ctx, q, "SELECT $1", n)
}`,
		`func Q_query_unchecked(ctx context.Context, q sqlnamed.Querier, n int) *sqlnamed.RowQuery {
	return sqlnamed.QueryUnchecked(ctx, q, "SELECT $1", n)
}`,
		`func Q_query_scalar(ctx context.Context, q sqlnamed.Querier, n int) *sqlnamed.ScalarQuery[int] {
	return sqlnamed.QueryScalar[int](ctx, q, "SELECT $1", n)
}`,
		`func Q_query_scalar_unchecked(ctx context.Context, q sqlnamed.Querier, n int) *sqlnamed.ScalarQuery[int] {
	return sqlnamed.QueryScalarUnchecked[int](ctx, q, "SELECT $1", n)
}`,
		`func Q_query_as_unchecked(ctx context.Context, q sqlnamed.Querier, n int) *sqlnamed.RecordQuery[int] {
	return sqlnamed.QueryAsUnchecked[int](ctx, q, "SELECT $1", n)
}`,
	} {
		c.Check(string(out), Contains, call)
	}
}

func (s *EmitSuite) TestEmitImports(c *C) {
	b, err := expr.Expand("SELECT * FROM event WHERE at > $since", "since")
	c.Assert(err, IsNil)
	out, err := Emit("events", []Query{{
		Name:    "EventsSince",
		Params:  "since time.Time",
		Variant: mustVariant(c, "query"),
		Binding: b,
	}}, []Import{{Path: "strings"}, {Path: "time"}, {Name: "_", Path: "embed"}, {Path: "context"}})
	c.Assert(err, IsNil)
	c.Check(string(out), Contains, `import (
	"context"
	"time"

	"github.com/canonical/sqlnamed"
)`)
	c.Check(string(out), Not(Contains), `"strings"`)
	c.Check(string(out), Not(Contains), `"embed"`)
}

func (s *EmitSuite) TestEmitNoParamsMultiline(c *C) {
	b, err := expr.Expand("SELECT id\nFROM account", "")
	c.Assert(err, IsNil)
	out, err := Emit("p", []Query{{Name: "All", Variant: mustVariant(c, "query"), Binding: b}}, nil)
	c.Assert(err, IsNil)
	c.Check(string(out), Contains, "func All(ctx context.Context, q sqlnamed.Querier) *sqlnamed.RowQuery {\n\treturn sqlnamed.Query(ctx, q, `SELECT id\nFROM account`)\n}")
}

func (s *EmitSuite) TestSQLLiteral(c *C) {
	c.Check(sqlLiteral(`SELECT "a"`), Equals, `"SELECT \"a\""`)
	c.Check(sqlLiteral("SELECT a\nFROM t"), Equals, "`SELECT a\nFROM t`")
	c.Check(sqlLiteral("SELECT `a`\nFROM t"), Equals, `"SELECT `+"`a`"+`\nFROM t"`)
}

func (s *EmitSuite) TestConvert(c *C) {
	tests := []struct {
		arg      expr.BoundArg
		expected string
	}{
		{expr.BoundArg{Value: "id"}, "id"},
		{expr.BoundArg{Value: "id", Type: "_"}, "id"},
		{expr.BoundArg{Value: "id", Type: "int32"}, "int32(id)"},
		{expr.BoundArg{Value: "acct.Owner", Type: "pgtype.Text"}, "pgtype.Text(acct.Owner)"},
		{expr.BoundArg{Value: "raw", Type: "[]byte"}, "[]byte(raw)"},
		{expr.BoundArg{Value: "v", Type: "Opt[int]"}, "Opt[int](v)"},
		{expr.BoundArg{Value: "&id", Type: "*int64"}, "(*int64)(&id)"},
		{expr.BoundArg{Value: "f", Type: "func()"}, "(func())(f)"},
		{expr.BoundArg{Value: "ch", Type: "<-chan int"}, "(<-chan int)(ch)"},
	}
	for _, t := range tests {
		c.Check(convert(t.arg), Equals, t.expected)
	}
}
