// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package gen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"sort"
	"strconv"
	"strings"
)

// directivePrefix starts a query directive comment.
const directivePrefix = "//sqlnamed "

// Directive is a query declared in a comment:
//
//	//sqlnamed FindAccount(id int64, team string) query_as(Account,
//	//	"SELECT id, name FROM account WHERE id = $id AND team = $team", id, team)
//
// The lines of the comment group following the first one are part of the
// directive, up to an empty comment line or the next directive.
type Directive struct {
	// Name is the name of the generated function.
	Name string
	// Params is the parameter list of the generated function, as written.
	Params  string
	Variant Variant
	// Type is the result type of the query_as and query_scalar variants.
	Type string
	// Source is the SQL template, or the path of the file holding it.
	Source string
	// Args is the argument list following the source, as written.
	Args string

	text string
	// segs map offsets of text to positions in the Go source file.
	segs []segment
	// srcOff is the offset of the source literal in text. If srcExact is
	// true, offsets into Source map to offsets into the literal shifted by
	// one.
	srcOff   int
	srcExact bool
	// argsOff is the offset of Args in text.
	argsOff int
}

// segment is a line of a directive.
type segment struct {
	off int
	pos token.Pos
}

// pos returns the position in the Go source of the byte at offset off of the
// directive text.
func (d *Directive) pos(off int) token.Pos {
	i := sort.Search(len(d.segs), func(i int) bool { return d.segs[i].off > off }) - 1
	if i < 0 {
		i = 0
	}
	if d.segs[i].pos == token.NoPos {
		return token.NoPos
	}
	return d.segs[i].pos + token.Pos(off-d.segs[i].off)
}

// Pos returns the position in the Go source of the start of the directive.
func (d *Directive) Pos() token.Pos {
	return d.pos(0)
}

// sourcePos returns the position of the byte at offset off of Source.
func (d *Directive) sourcePos(off int) token.Pos {
	if !d.srcExact {
		return d.pos(d.srcOff)
	}
	return d.pos(d.srcOff + 1 + off)
}

// argsPos returns the position of the byte at offset off of Args.
func (d *Directive) argsPos(off int) token.Pos {
	return d.pos(d.argsOff + off)
}

// FindDirectives returns the query directives of the comments of file, in
// source order, along with the errors of the malformed ones.
func FindDirectives(file *ast.File) ([]*Directive, []error) {
	var ds []*Directive
	var errs []error
	for _, group := range file.Comments {
		for _, dt := range groupDirectives(group) {
			d, err := parseDirective(dt.text.String(), dt.segs)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			ds = append(ds, d)
		}
	}
	return ds, errs
}

// groupDirectives returns the text of the directives of a comment group.
func groupDirectives(group *ast.CommentGroup) []*directiveText {
	var dts []*directiveText
	var cur *directiveText
	for _, c := range group.List {
		if rest, ok := strings.CutPrefix(c.Text, directivePrefix); ok {
			cur = &directiveText{}
			cur.add(rest, c.Slash+token.Pos(len(directivePrefix)))
			dts = append(dts, cur)
			continue
		}
		if cur == nil {
			continue
		}
		line, ok := strings.CutPrefix(c.Text, "//")
		trimmed := strings.TrimLeft(line, " \t")
		if !ok || trimmed == "" || strings.HasPrefix(trimmed, "go:") {
			cur = nil
			continue
		}
		cur.add(trimmed, c.Slash+token.Pos(2+len(line)-len(trimmed)))
	}
	return dts
}

// directiveText accumulates the lines of a directive.
type directiveText struct {
	text strings.Builder
	segs []segment
}

func (dt *directiveText) add(line string, pos token.Pos) {
	if dt.text.Len() > 0 {
		dt.text.WriteString("\n")
	}
	dt.segs = append(dt.segs, segment{off: dt.text.Len(), pos: pos})
	dt.text.WriteString(line)
}

// DirectiveError is a malformed directive.
type DirectiveError struct {
	Pos token.Pos
	Msg string
}

func (e *DirectiveError) Error() string {
	return e.Msg
}

// dirToken is a Go token of a directive.
type dirToken struct {
	tok        token.Token
	lit        string
	start, end int
}

// directiveParser splits a directive into its parts.
type directiveParser struct {
	d    *Directive
	toks []dirToken
}

// ParseDirective parses the text of a directive following the "//sqlnamed "
// prefix.
func ParseDirective(text string) (*Directive, error) {
	return parseDirective(text, nil)
}

// parseDirective parses the text of a directive whose lines are located in
// the Go source by segs.
func parseDirective(text string, segs []segment) (*Directive, error) {
	if len(segs) == 0 {
		segs = []segment{{off: 0, pos: token.NoPos}}
	}
	p := &directiveParser{d: &Directive{text: text, segs: segs}}
	if err := p.init(); err != nil {
		return nil, err
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.d, nil
}

func (p *directiveParser) errorf(off int, format string, args ...any) error {
	return &DirectiveError{Pos: p.d.pos(off), Msg: fmt.Sprintf(format, args...)}
}

func (p *directiveParser) init() error {
	text := p.d.text
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(text))
	var firstErr error
	var s scanner.Scanner
	s.Init(file, []byte(text), func(pos token.Position, msg string) {
		if firstErr == nil {
			firstErr = p.errorf(pos.Offset, "%s", msg)
		}
	}, 0)
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		start := file.Offset(pos)
		end := start + len(tok.String())
		if lit != "" {
			end = start + len(lit)
		}
		if tok == token.STRING && text[start] == '`' {
			// Carriage returns are stripped from raw string literals.
			end = start + 1 + strings.IndexByte(text[start+1:], '`') + 1
		}
		p.toks = append(p.toks, dirToken{tok: tok, lit: lit, start: start, end: end})
	}
	return firstErr
}

// closing returns the index of the token closing the bracket at toks[i].
func (p *directiveParser) closing(i int) (int, error) {
	depth := 0
	for j := i; j < len(p.toks); j++ {
		switch p.toks[j].tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return 0, p.errorf(p.toks[i].start, "missing closing %s", closerOf(p.toks[i].tok))
}

func closerOf(tok token.Token) token.Token {
	switch tok {
	case token.LBRACK:
		return token.RBRACK
	case token.LBRACE:
		return token.RBRACE
	}
	return token.RPAREN
}

// expect checks that toks[i] is tok.
func (p *directiveParser) expect(i int, tok token.Token, what string) error {
	if i >= len(p.toks) {
		return p.errorf(len(p.d.text), "expected %s at end of directive", what)
	}
	if p.toks[i].tok != tok {
		return p.errorf(p.toks[i].start, "expected %s, found %q", what, p.d.text[p.toks[i].start:p.toks[i].end])
	}
	return nil
}

// parse splits the directive:
//
//	Name(Params) variant([Type,] "source"[, Args])
func (p *directiveParser) parse() error {
	d := p.d
	if err := p.expect(0, token.IDENT, "function name"); err != nil {
		return err
	}
	d.Name = p.toks[0].lit
	if err := p.expect(1, token.LPAREN, "'(' after "+d.Name); err != nil {
		return err
	}
	rparen, err := p.closing(1)
	if err != nil {
		return err
	}
	raw := d.text[p.toks[1].end:p.toks[rparen].start]
	d.Params = strings.TrimSpace(raw)
	if d.Params != "" {
		paramsOff := p.toks[1].end + strings.Index(raw, d.Params)
		if err := p.checkParams(paramsOff); err != nil {
			return err
		}
	}

	i := rparen + 1
	if i < len(p.toks) && p.toks[i].tok.IsKeyword() {
		// Keywords such as "select" are reported as unknown variants.
		p.toks[i].tok = token.IDENT
	}
	if err := p.expect(i, token.IDENT, "query variant"); err != nil {
		return err
	}
	d.Variant, err = ParseVariant(d.text[p.toks[i].start:p.toks[i].end])
	if err != nil {
		return p.errorf(p.toks[i].start, "%s", err)
	}
	if err := p.expect(i+1, token.LPAREN, "'(' after "+d.Variant.Name); err != nil {
		return err
	}
	bodyEnd, err := p.closing(i + 1)
	if err != nil {
		return err
	}
	if bodyEnd != len(p.toks)-1 {
		t := p.toks[bodyEnd+1]
		return p.errorf(t.start, "unexpected %q after %s", d.text[t.start:t.end], d.Variant.Name)
	}
	return p.parseBody(i+2, bodyEnd)
}

// reservedParams are the parameters every generated function starts with.
var reservedParams = map[string]bool{"ctx": true, "q": true}

// checkParams checks that Params, found at offset off of the text, is a
// valid parameter list that does not redeclare a reserved parameter.
func (p *directiveParser) checkParams(off int) error {
	const prefix = "func("
	fset := token.NewFileSet()
	x, err := parser.ParseExprFrom(fset, "", prefix+p.d.Params+")", 0)
	if err != nil {
		return p.errorf(off, "invalid parameters %q", p.d.Params)
	}
	ft, ok := x.(*ast.FuncType)
	if !ok {
		return p.errorf(off, "invalid parameters %q", p.d.Params)
	}
	for _, field := range ft.Params.List {
		if len(field.Names) == 0 {
			return p.errorf(off, "parameters of %s must be named", p.d.Name)
		}
		for _, name := range field.Names {
			if reservedParams[name.Name] {
				nameOff := fset.Position(name.Pos()).Offset - len(prefix)
				return p.errorf(off+nameOff, "parameter %s is reserved for the generated function", name.Name)
			}
		}
	}
	return nil
}

// parseBody parses the arguments of the variant in toks[from:to].
func (p *directiveParser) parseBody(from, to int) error {
	d := p.d
	i := from
	if d.Variant.TakesType() {
		end := p.topLevelComma(i, to)
		if end == i || end == to {
			return p.errorf(p.offset(i), "%s needs a result type and a query", d.Variant.Name)
		}
		d.Type = strings.TrimSpace(d.text[p.toks[i].start:p.toks[end-1].end])
		if _, err := parser.ParseExpr(d.Type); err != nil {
			return p.errorf(p.toks[i].start, "invalid result type %q", d.Type)
		}
		i = end + 1
	}

	what := "query string"
	if d.Variant.File {
		what = "query file path"
	}
	if i >= to {
		return p.errorf(p.offset(i), "%s needs a %s", d.Variant.Name, what)
	}
	if err := p.expect(i, token.STRING, what); err != nil {
		return err
	}
	lit := p.toks[i]
	src, err := strconv.Unquote(lit.lit)
	if err != nil {
		return p.errorf(lit.start, "invalid %s: %s", what, err)
	}
	d.Source = src
	d.srcOff = lit.start
	d.srcExact = d.text[lit.start+1:lit.end-1] == src
	i++

	switch {
	case i == to:
		d.argsOff = p.offset(i)
	case p.toks[i].tok != token.COMMA:
		t := p.toks[i]
		return p.errorf(t.start, "expected ',' after %s, found %q", what, d.text[t.start:t.end])
	default:
		d.argsOff = p.toks[i].end
		d.Args = d.text[d.argsOff:p.toks[to].start]
	}
	return nil
}

// topLevelComma returns the index of the first comma in toks[from:to] that
// is not nested in brackets, or to.
func (p *directiveParser) topLevelComma(from, to int) int {
	depth := 0
	for i := from; i < to; i++ {
		switch p.toks[i].tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
		case token.COMMA:
			if depth == 0 {
				return i
			}
		}
	}
	return to
}

// offset returns the offset of toks[i], or the end of the text.
func (p *directiveParser) offset(i int) int {
	if i < len(p.toks) {
		return p.toks[i].start
	}
	return len(p.d.text)
}
