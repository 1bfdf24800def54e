// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
)

// argToken is a Go token of an argument list along with its byte range.
type argToken struct {
	tok        token.Token
	lit        string
	start, end int
}

// ArgParser splits the argument list of a call site into RawArgs. Values and
// types are Go expressions; they are checked to be well formed but are
// otherwise kept as written.
type ArgParser struct {
	input string
	toks  []argToken
	// match maps the index of each bracket token to the index of its pair.
	match map[int]int
}

// NewArgParser returns a parser ready to parse argument lists.
func NewArgParser() *ArgParser {
	return &ArgParser{}
}

// ParseArgs parses a comma separated argument list. A trailing comma is
// accepted.
func ParseArgs(input string) ([]RawArg, error) {
	return NewArgParser().Parse(input)
}

// init resets the state of the parser and tokenizes the input.
func (p *ArgParser) init(input string) error {
	p.input = input
	p.toks = nil
	p.match = map[int]int{}

	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(input))
	var firstErr error
	var s scanner.Scanner
	s.Init(file, []byte(input), func(pos token.Position, msg string) {
		if firstErr == nil {
			firstErr = syntaxError(Span{Start: pos.Offset, End: pos.Offset, Line: pos.Line, Column: pos.Column}, "%s", msg)
		}
	}, 0)
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		// Newlines are insignificant in argument lists.
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		start := file.Offset(pos)
		p.toks = append(p.toks, argToken{tok: tok, lit: lit, start: start, end: start + tokenLen(input[start:], tok, lit)})
	}
	if firstErr != nil {
		return firstErr
	}
	return p.matchBrackets()
}

// tokenLen returns the length of the token at the start of rest.
func tokenLen(rest string, tok token.Token, lit string) int {
	switch {
	case tok == token.STRING && strings.HasPrefix(rest, "`"):
		// The literal of a raw string has carriage returns stripped.
		if i := strings.IndexByte(rest[1:], '`'); i >= 0 {
			return i + 2
		}
		return len(rest)
	case lit != "":
		return len(lit)
	}
	return len(tok.String())
}

var closerOf = map[token.Token]token.Token{
	token.LPAREN: token.RPAREN,
	token.LBRACK: token.RBRACK,
	token.LBRACE: token.RBRACE,
}

// matchBrackets pairs up every bracket of the input.
func (p *ArgParser) matchBrackets() error {
	var open []int
	for i, t := range p.toks {
		switch t.tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			open = append(open, i)
		case token.RPAREN, token.RBRACK, token.RBRACE:
			if len(open) == 0 || closerOf[p.toks[open[len(open)-1]].tok] != t.tok {
				return syntaxError(p.span(i, i+1), "unexpected %s", t.tok)
			}
			o := open[len(open)-1]
			open = open[:len(open)-1]
			p.match[o] = i
			p.match[i] = o
		}
	}
	if len(open) > 0 {
		o := open[len(open)-1]
		return syntaxError(p.span(o, o+1), "missing closing %s", closerOf[p.toks[o].tok])
	}
	return nil
}

// Parse parses a comma separated argument list.
func (p *ArgParser) Parse(input string) ([]RawArg, error) {
	if err := p.init(input); err != nil {
		return nil, err
	}
	var args []RawArg
	for i := 0; i < len(p.toks); {
		end := p.findTopLevel(i, len(p.toks), token.COMMA)
		if end == i {
			return nil, syntaxError(p.span(i, i+1), "expected argument, found ','")
		}
		arg, err := p.parseArgument(i, end)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		i = end + 1
	}
	return args, nil
}

// findTopLevel returns the index of the first tok in toks[from:to] that is
// not nested in brackets, or to if there is none.
func (p *ArgParser) findTopLevel(from, to int, tok token.Token) int {
	for i := from; i < to; i++ {
		t := p.toks[i].tok
		if t == tok {
			return i
		}
		if _, ok := closerOf[t]; ok {
			i = p.match[i]
		}
	}
	return to
}

// findTopLevelAs returns the index of the first "as" in toks[from+1:to] that
// is not nested in brackets, or -1 if there is none. The first token is never
// a cast keyword since it has nothing to cast.
func (p *ArgParser) findTopLevelAs(from, to int) int {
	for i := from; i < to; i++ {
		t := p.toks[i]
		if i > from && t.tok == token.IDENT && t.lit == "as" {
			return i
		}
		if _, ok := closerOf[t.tok]; ok {
			i = p.match[i]
		}
	}
	return -1
}

// text returns the input covered by toks[from:to].
func (p *ArgParser) text(from, to int) string {
	if from >= to {
		return ""
	}
	return p.input[p.toks[from].start:p.toks[to-1].end]
}

// span returns the location of toks[from:to].
func (p *ArgParser) span(from, to int) Span {
	if from >= len(p.toks) {
		return offsetSpan(p.input, len(p.input), len(p.input))
	}
	if to <= from {
		to = from + 1
	}
	return offsetSpan(p.input, p.toks[from].start, p.toks[to-1].end)
}

// offsetSpan computes the line and column of a byte range of input.
func offsetSpan(input string, start, end int) Span {
	line := 1 + strings.Count(input[:start], "\n")
	lineStart := strings.LastIndexByte(input[:start], '\n') + 1
	return Span{Start: start, End: end, Line: line, Column: start - lineStart + 1}
}

// parseArgument parses the argument spanning toks[from:to].
func (p *ArgParser) parseArgument(from, to int) (RawArg, error) {
	if p.isSplat(from, to) {
		return p.parseSplat(from, to)
	}
	return p.parseSingle(from, to)
}

// isSplat reports whether toks[from:to] starts with "..".
func (p *ArgParser) isSplat(from, to int) bool {
	return from+1 < to &&
		p.toks[from].tok == token.PERIOD &&
		p.toks[from+1].tok == token.PERIOD &&
		p.toks[from].end == p.toks[from+1].start
}

// parseSingle parses "value [as Type]" or "name = value [as Type]".
func (p *ArgParser) parseSingle(from, to int) (RawArg, error) {
	assign := p.findTopLevel(from, to, token.ASSIGN)
	if assign == to {
		value, cast, inferred, err := p.parseCastable(from, to)
		if err != nil {
			return nil, err
		}
		return &SingleArg{Value: value, Cast: cast, Inferred: inferred, Span: p.span(from, to)}, nil
	}

	if assign == from {
		return nil, syntaxError(p.span(from, from+1), "missing argument name before '='")
	}
	if t := p.toks[from]; assign != from+1 || t.tok != token.IDENT || t.lit == "_" {
		return nil, invalidArgumentNameError(p.span(from, assign), p.text(from, assign))
	}
	if assign+1 == to {
		return nil, syntaxError(p.span(assign, assign+1), "missing value after '='")
	}
	value, cast, _, err := p.parseCastable(assign+1, to)
	if err != nil {
		return nil, err
	}
	return &SingleArg{Name: p.toks[from].lit, Value: value, Cast: cast, Span: p.span(from, to)}, nil
}

// parseCastable parses "value [as Type]" and returns the value, the type and
// the name inferred from the value.
func (p *ArgParser) parseCastable(from, to int) (value, cast, inferred string, err error) {
	as := p.findTopLevelAs(from, to)
	if as < 0 {
		x, err := p.parseExpr(from, to)
		if err != nil {
			return "", "", "", err
		}
		return p.text(from, to), "", inferName(x, false), nil
	}
	if as+1 == to {
		return "", "", "", syntaxError(p.span(as, as+1), "missing type after 'as'")
	}
	x, err := p.parseExpr(from, as)
	if err != nil {
		return "", "", "", err
	}
	cast, err = p.parseType(as+1, to)
	if err != nil {
		return "", "", "", err
	}
	return p.text(from, as), cast, inferName(x, true), nil
}

// inferName returns the identifier a value is named after, if any. Casts
// look through address-of, dereference and parentheses, e.g. "&id as _" is
// named "id".
func inferName(x ast.Expr, cast bool) string {
	switch x := x.(type) {
	case *ast.Ident:
		if x.Name != "_" {
			return x.Name
		}
	case *ast.ParenExpr:
		if cast {
			return inferName(x.X, cast)
		}
	case *ast.StarExpr:
		if cast {
			return inferName(x.X, cast)
		}
	case *ast.UnaryExpr:
		if cast && x.Op == token.AND {
			return inferName(x.X, cast)
		}
	}
	return ""
}

// parseExpr checks that toks[from:to] is a Go expression.
func (p *ArgParser) parseExpr(from, to int) (ast.Expr, error) {
	text := p.text(from, to)
	x, err := parser.ParseExpr(text)
	if err != nil {
		return nil, syntaxError(p.span(from, to), "invalid expression %q: %s", text, firstErrorMsg(err))
	}
	return x, nil
}

// parseType checks that toks[from:to] is a Go type, or "_".
func (p *ArgParser) parseType(from, to int) (string, error) {
	text := p.text(from, to)
	if text == "_" {
		return text, nil
	}
	x, err := parser.ParseExpr(text)
	if err != nil {
		return "", syntaxError(p.span(from, to), "invalid type %q: %s", text, firstErrorMsg(err))
	}
	if !isType(x) {
		return "", syntaxError(p.span(from, to), "expected type, found %q", text)
	}
	return text, nil
}

func isType(x ast.Expr) bool {
	switch x := x.(type) {
	case *ast.Ident, *ast.ArrayType, *ast.MapType, *ast.ChanType, *ast.FuncType,
		*ast.StructType, *ast.InterfaceType, *ast.IndexExpr, *ast.IndexListExpr:
		return true
	case *ast.SelectorExpr:
		_, ok := x.X.(*ast.Ident)
		return ok
	case *ast.StarExpr:
		return isType(x.X)
	case *ast.ParenExpr:
		return isType(x.X)
	}
	return false
}

func firstErrorMsg(err error) string {
	if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
		return list[0].Msg
	}
	return err.Error()
}

// parseSplat parses "..parent{children}" or "..parent[children]".
func (p *ArgParser) parseSplat(from, to int) (RawArg, error) {
	last := to - 1
	if t := p.toks[last].tok; last < from+2 || (t != token.RBRACE && t != token.RBRACK) {
		return nil, syntaxError(p.span(from, to), "expected '{' or '[' closing splat %q", p.text(from, to))
	}
	open := p.match[last]
	if open <= from+2 {
		return nil, syntaxError(p.span(from, open+1), "missing expression after '..'")
	}
	parent, err := p.parseExpr(from+2, open)
	if err != nil {
		return nil, err
	}
	arg := &SplatArg{
		Parent: p.text(from+2, open),
		paren:  !isPrimary(parent),
		Span:   p.span(from, to),
	}
	if open+1 == last {
		return nil, syntaxError(p.span(open, to), "splat of %q has no children", arg.Parent)
	}
	for i := open + 1; i < last; {
		end := p.findTopLevel(i, last, token.COMMA)
		if end == i {
			return nil, syntaxError(p.span(i, i+1), "expected splat child, found ','")
		}
		child, err := p.parseChild(i, end)
		if err != nil {
			return nil, err
		}
		// The child must form a valid expression once attached to the parent.
		if _, err := parser.ParseExpr(arg.Value(child)); err != nil {
			return nil, syntaxError(child.Span, "invalid splat child %q: %s", p.text(i, end), firstErrorMsg(err))
		}
		arg.Children = append(arg.Children, child)
		i = end + 1
	}
	return arg, nil
}

// isPrimary reports whether an accessor can be appended to x without
// parenthesising it.
func isPrimary(x ast.Expr) bool {
	switch x.(type) {
	case *ast.Ident, *ast.SelectorExpr, *ast.CallExpr, *ast.IndexExpr,
		*ast.IndexListExpr, *ast.ParenExpr, *ast.CompositeLit, *ast.TypeAssertExpr:
		return true
	}
	return false
}

// parseChild parses "[name =] .accessor... [as Type]".
func (p *ArgParser) parseChild(from, to int) (RawChild, error) {
	child := RawChild{Span: p.span(from, to)}
	i := from
	if i+1 < to && p.toks[i].tok == token.IDENT && p.toks[i+1].tok == token.ASSIGN {
		if p.toks[i].lit == "_" {
			return RawChild{}, invalidArgumentNameError(p.span(i, i+1), "_")
		}
		child.Rename = p.toks[i].lit
		i += 2
	} else if assign := p.findTopLevel(i, to, token.ASSIGN); assign < to {
		return RawChild{}, invalidArgumentNameError(p.span(i, assign), p.text(i, assign))
	}

	pathEnd := to
	if as := p.findTopLevelAs(i, to); as >= 0 {
		if as+1 == to {
			return RawChild{}, syntaxError(p.span(as, as+1), "missing type after 'as'")
		}
		cast, err := p.parseType(as+1, to)
		if err != nil {
			return RawChild{}, err
		}
		child.Cast = cast
		pathEnd = as
	}

	path, err := p.parseAccessPath(i, pathEnd)
	if err != nil {
		return RawChild{}, err
	}
	child.Path = path
	return child, nil
}

// parseAccessPath parses a sequence of ".field", ".0" and ".method(args)".
func (p *ArgParser) parseAccessPath(from, to int) ([]Accessor, error) {
	if from == to {
		return nil, syntaxError(p.span(from, from+1), "expected '.' to start splat child")
	}
	var path []Accessor
	for i := from; i < to; {
		t := p.toks[i]
		switch {
		case t.tok == token.PERIOD:
			if i+1 == to {
				return nil, syntaxError(p.span(i, i+1), "expected field, index or method after '.'")
			}
			acc, next, err := p.parseAccessor(i+1, to)
			if err != nil {
				return nil, err
			}
			path = append(path, acc)
			i = next
		case t.tok == token.FLOAT && strings.HasPrefix(t.lit, "."):
			// ".0" is scanned as a float literal.
			if !isDecimal(t.lit[1:]) {
				return nil, syntaxError(p.span(i, i+1), "invalid index %q", t.lit)
			}
			path = append(path, Accessor{Kind: IndexAccessor, Name: t.lit[1:]})
			i++
		case len(path) == 0:
			return nil, syntaxError(p.span(i, i+1), "expected '.' to start splat child, found %q", p.text(i, i+1))
		default:
			return nil, syntaxError(p.span(i, i+1), "unexpected %q in splat child", p.text(i, i+1))
		}
	}
	return path, nil
}

// parseAccessor parses the accessor following a '.' and returns the index of
// the token after it.
func (p *ArgParser) parseAccessor(i, to int) (Accessor, int, error) {
	t := p.toks[i]
	switch t.tok {
	case token.INT:
		if !isDecimal(t.lit) {
			return Accessor{}, 0, syntaxError(p.span(i, i+1), "invalid index %q", t.lit)
		}
		return Accessor{Kind: IndexAccessor, Name: t.lit}, i + 1, nil
	case token.IDENT:
		acc := Accessor{Kind: MemberAccessor, Name: t.lit}
		j := i + 1
		if j < to && p.toks[j].tok == token.LBRACK {
			k := p.match[j]
			if k+1 >= to || p.toks[k+1].tok != token.LPAREN {
				return Accessor{}, 0, syntaxError(p.span(j, k+1), "expected '(' after type arguments of %s", t.lit)
			}
			// Go methods have no type parameters of their own.
			return Accessor{}, 0, syntaxError(p.span(j, k+1), "method %s cannot take type arguments", t.lit)
		}
		if j < to && p.toks[j].tok == token.LPAREN {
			k := p.match[j]
			acc.Kind = MethodAccessor
			acc.Args = p.text(j+1, k)
			return acc, k + 1, nil
		}
		return acc, j, nil
	}
	return Accessor{}, 0, syntaxError(p.span(i, i+1), "expected field, index or method, found %q", p.text(i, i+1))
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
