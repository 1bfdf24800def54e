// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr_test

import (
	"errors"

	. "gopkg.in/check.v1"

	"github.com/canonical/sqlnamed/internal/expr"
)

type ArgParserSuite struct{}

var _ = Suite(&ArgParserSuite{})

var argTests = []struct {
	summary        string
	input          string
	expectedParsed []string
}{{
	"empty list",
	"",
	nil,
}, {
	"identifier",
	"id",
	[]string{"Single[id (id)]"},
}, {
	"cast identifier",
	"id as int64",
	[]string{"Single[id as int64 (id)]"},
}, {
	"wildcard cast",
	"&id as _",
	[]string{"Single[&id as _ (id)]"},
}, {
	"cast looks through dereference and parentheses",
	"*(p) as int",
	[]string{"Single[*(p) as int (p)]"},
}, {
	"reference without cast is not named",
	"&id",
	[]string{"Single[&id]"},
}, {
	"selector is not named",
	"acct.ID",
	[]string{"Single[acct.ID]"},
}, {
	"assignment",
	"name = acct.Name",
	[]string{"Single[name = acct.Name]"},
}, {
	"assignment with cast",
	"n = x as *string",
	[]string{"Single[n = x as *string]"},
}, {
	"nested commas",
	"f(a, b), [2]int{1, 2}, m[k]",
	[]string{"Single[f(a, b)]", "Single[[2]int{1, 2}]", "Single[m[k]]"},
}, {
	"comparison is not an assignment",
	"a == b",
	[]string{"Single[a == b]"},
}, {
	"function literal",
	"func() int { x := 1; return x }()",
	[]string{"Single[func() int { x := 1; return x }()]"},
}, {
	"newlines and trailing comma",
	"id,\n\tname,\n",
	[]string{"Single[id (id)]", "Single[name (name)]"},
}, {
	"splat",
	"..acct{.ID, owner = .Owner.Name, .Balance() as int64, .0}",
	[]string{"Splat[acct {.ID, owner = .Owner.Name, .Balance() as int64, [0]}]"},
}, {
	"splat with brackets and trailing comma",
	"..pair[.0, .1,]",
	[]string{"Splat[pair {[0], [1]}]"},
}, {
	"splat between singles",
	"a, ..b{.c}, d = e",
	[]string{"Single[a (a)]", "Splat[b {.c}]", "Single[d = e]"},
}}

func (s *ArgParserSuite) TestRound(c *C) {
	for i, t := range argTests {
		args, err := expr.ParseArgs(t.input)
		if err != nil {
			c.Errorf("test %d failed (error):\nsummary: %s\ninput: %s\nerr: %s\n", i, t.summary, t.input, err)
			continue
		}
		var parsed []string
		for _, arg := range args {
			parsed = append(parsed, arg.String())
		}
		c.Check(parsed, DeepEquals, t.expectedParsed, Commentf("test %d: %s", i, t.summary))
	}
}

func (s *ArgParserSuite) TestSingleFields(c *C) {
	args, err := expr.ParseArgs("x as [ ]byte, y = z")
	c.Assert(err, IsNil)
	c.Assert(args, HasLen, 2)
	c.Assert(args[0], DeepEquals, &expr.SingleArg{
		Value:    "x",
		Cast:     "[ ]byte",
		Inferred: "x",
		Span:     expr.Span{Start: 0, End: 12, Line: 1, Column: 1},
	})
	c.Assert(args[1], DeepEquals, &expr.SingleArg{
		Value: "z",
		Name:  "y",
		Span:  expr.Span{Start: 14, End: 19, Line: 1, Column: 15},
	})
}

func (s *ArgParserSuite) TestSplatValues(c *C) {
	tests := []struct {
		input    string
		values   []string
		inferred []string
	}{{
		input:    "..acct{.id, renamed = .name}",
		values:   []string{"acct.id", "acct.name"},
		inferred: []string{"id", "name"},
	}, {
		input:    "..acct{.Name(), .Tags.0, .Owner.ID}",
		values:   []string{"acct.Name()", "acct.Tags[0]", "acct.Owner.ID"},
		inferred: []string{"", "", ""},
	}, {
		input:    "..*p{.ID}",
		values:   []string{"(*p).ID"},
		inferred: []string{"ID"},
	}, {
		input:    "..(*p){.ID}",
		values:   []string{"(*p).ID"},
		inferred: []string{"ID"},
	}, {
		input:    "..accts[0]{.ID}",
		values:   []string{"accts[0].ID"},
		inferred: []string{"ID"},
	}, {
		input:    "..load(ctx, id){.ID as int64}",
		values:   []string{"load(ctx, id).ID"},
		inferred: []string{"ID"},
	}}
	for _, t := range tests {
		args, err := expr.ParseArgs(t.input)
		c.Assert(err, IsNil, Commentf("input: %s", t.input))
		c.Assert(args, HasLen, 1)
		splat, ok := args[0].(*expr.SplatArg)
		c.Assert(ok, Equals, true)
		var values, inferred []string
		for _, child := range splat.Children {
			values = append(values, splat.Value(child))
			inferred = append(inferred, child.Inferred())
		}
		c.Check(values, DeepEquals, t.values, Commentf("input: %s", t.input))
		c.Check(inferred, DeepEquals, t.inferred, Commentf("input: %s", t.input))
	}
}

func (s *ArgParserSuite) TestAccessors(c *C) {
	args, err := expr.ParseArgs("..x{.A, .1, .M(a, b)}")
	c.Assert(err, IsNil)
	splat := args[0].(*expr.SplatArg)
	c.Assert(splat.Children, HasLen, 3)
	c.Assert(splat.Children[0].Path, DeepEquals, []expr.Accessor{{Kind: expr.MemberAccessor, Name: "A"}})
	c.Assert(splat.Children[1].Path, DeepEquals, []expr.Accessor{{Kind: expr.IndexAccessor, Name: "1"}})
	c.Assert(splat.Children[2].Path, DeepEquals, []expr.Accessor{{
		Kind: expr.MethodAccessor,
		Name: "M",
		Args: "a, b",
	}})
}

func (s *ArgParserSuite) TestParseErrors(c *C) {
	tests := []struct {
		summary string
		input   string
		kind    error
		err     string
	}{{
		summary: "leading comma",
		input:   ", id",
		kind:    expr.ErrSyntax,
		err:     "column 1: syntax error: expected argument, found ','",
	}, {
		summary: "double comma",
		input:   "a,, b",
		kind:    expr.ErrSyntax,
		err:     "column 3: syntax error: expected argument, found ','",
	}, {
		summary: "selector assignment",
		input:   "a.b = 1",
		kind:    expr.ErrInvalidArgumentName,
		err:     `column 1: invalid argument name "a.b"`,
	}, {
		summary: "blank assignment",
		input:   "_ = 1",
		kind:    expr.ErrInvalidArgumentName,
		err:     `column 1: invalid argument name "_"`,
	}, {
		summary: "missing name",
		input:   "= 1",
		kind:    expr.ErrSyntax,
		err:     "column 1: syntax error: missing argument name before '='",
	}, {
		summary: "missing value",
		input:   "x =",
		kind:    expr.ErrSyntax,
		err:     "column 3: syntax error: missing value after '='",
	}, {
		summary: "missing type",
		input:   "x as",
		kind:    expr.ErrSyntax,
		err:     "column 3: syntax error: missing type after 'as'",
	}, {
		summary: "literal type",
		input:   "x as 1",
		kind:    expr.ErrSyntax,
		err:     `column 6: syntax error: expected type, found "1"`,
	}, {
		summary: "unclosed paren",
		input:   "f(a",
		kind:    expr.ErrSyntax,
		err:     `column 2: syntax error: missing closing \)`,
	}, {
		summary: "stray bracket",
		input:   "a]",
		kind:    expr.ErrSyntax,
		err:     `column 2: syntax error: unexpected \]`,
	}, {
		summary: "invalid expression",
		input:   "1 +",
		kind:    expr.ErrSyntax,
		err:     `column 1: syntax error: invalid expression "1 \+": .*`,
	}, {
		summary: "splat without children",
		input:   "..acct",
		kind:    expr.ErrSyntax,
		err:     `column 1: syntax error: expected '{' or '\[' closing splat "..acct"`,
	}, {
		summary: "splat without parent",
		input:   "..{.a}",
		kind:    expr.ErrSyntax,
		err:     `column 1: syntax error: missing expression after '..'`,
	}, {
		summary: "empty splat",
		input:   "..a{}",
		kind:    expr.ErrSyntax,
		err:     `column 4: syntax error: splat of "a" has no children`,
	}, {
		summary: "child without dot",
		input:   "..a{b}",
		kind:    expr.ErrSyntax,
		err:     `column 5: syntax error: expected '.' to start splat child, found "b"`,
	}, {
		summary: "child with selector rename",
		input:   "..a{x.y = .b}",
		kind:    expr.ErrInvalidArgumentName,
		err:     `column 5: invalid argument name "x.y"`,
	}, {
		summary: "child with dangling dot",
		input:   "..a{.b.}",
		kind:    expr.ErrSyntax,
		err:     `column 7: syntax error: expected field, index or method after '.'`,
	}, {
		summary: "child with type arguments and no call",
		input:   "..a{.b[int]}",
		kind:    expr.ErrSyntax,
		err:     `column 7: syntax error: expected '\(' after type arguments of b`,
	}, {
		summary: "method with type arguments",
		input:   "..x{.Get[int](1, 2)}",
		kind:    expr.ErrSyntax,
		err:     `column 9: syntax error: method Get cannot take type arguments`,
	}}
	for _, t := range tests {
		_, err := expr.ParseArgs(t.input)
		c.Check(err, ErrorMatches, t.err, Commentf("test: %s", t.summary))
		c.Check(errors.Is(err, t.kind), Equals, true, Commentf("test: %s", t.summary))
	}
}

func (s *ArgParserSuite) TestScannerError(c *C) {
	_, err := expr.ParseArgs("x, 'ab'")
	c.Assert(errors.Is(err, expr.ErrSyntax), Equals, true)
	var exprErr *expr.Error
	c.Assert(errors.As(err, &exprErr), Equals, true)
	c.Assert(exprErr.Span.Column, Equals, 4)
}
