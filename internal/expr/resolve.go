// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"fmt"
	"strings"
)

// BoundArg is a value bound to one "$N" placeholder of the rewritten SQL.
type BoundArg struct {
	// Name is the name the value was bound with. It is empty in positional
	// templates when the value has no explicit name.
	Name  string
	Value string
	// Type is the Go type the value is converted to, "_" or "" for none.
	Type string
}

// Binding is the result of resolving the arguments of a template.
type Binding struct {
	Mode Mode
	// SQL is the query text with every placeholder in "$N" form.
	SQL string
	// Args holds the values in placeholder order: Args[i] is bound to
	// "$i+1".
	Args []BoundArg
}

func (b *Binding) String() string {
	var args []string
	for _, a := range b.Args {
		s := a.Value
		if a.Type != "" {
			s += " as " + a.Type
		}
		if a.Name != "" {
			s = a.Name + " = " + s
		}
		args = append(args, s)
	}
	return fmt.Sprintf("%s %q [%s]", b.Mode, b.SQL, strings.Join(args, ", "))
}

// Expand parses the SQL template and its argument list and binds them
// together.
func Expand(sql, args string) (*Binding, error) {
	t, err := ParseTemplate(sql)
	if err != nil {
		return nil, err
	}
	raw, err := ParseArgs(args)
	if err != nil {
		return nil, err
	}
	return Resolve(t, Normalize(raw))
}

// Resolve binds the candidates to the placeholders of the template.
//
// In positional templates the candidates are passed through in order and
// the SQL is left unchanged; explicitly named candidates are an error.
//
// In named templates every candidate must have a unique name. A placeholder
// is rewritten to "$N" where N is the position of the candidate with that
// name in the argument list. Every candidate must be used, and the values
// keep their declaration order.
func Resolve(t *Template, cands []Candidate) (*Binding, error) {
	if t.Mode() == Positional {
		return resolvePositional(t, cands)
	}
	return resolveNamed(t, cands)
}

func resolvePositional(t *Template, cands []Candidate) (*Binding, error) {
	b := &Binding{Mode: Positional, SQL: t.sql}
	for _, c := range cands {
		if c.Name != "" {
			return nil, namedArgInPositionalQueryError(c.Span, c.Name)
		}
		b.Args = append(b.Args, BoundArg{Value: c.Value, Type: c.Type})
	}
	return b, nil
}

// argTable holds the named candidates in declaration order.
type argTable struct {
	cands   []Candidate
	indexOf map[string]int
	used    []bool
}

func newArgTable(cands []Candidate) (*argTable, error) {
	at := &argTable{
		indexOf: make(map[string]int, len(cands)),
		used:    make([]bool, len(cands)),
	}
	for _, c := range cands {
		name := c.name()
		if name == "" {
			return nil, missingArgumentNameError(c.Span, c.Value)
		}
		if _, ok := at.indexOf[name]; ok {
			return nil, duplicateArgumentNameError(c.Span, name)
		}
		at.indexOf[name] = len(at.cands)
		at.cands = append(at.cands, c)
	}
	return at, nil
}

// unused returns the names of the candidates no placeholder refers to.
func (at *argTable) unused() []string {
	var names []string
	for i, c := range at.cands {
		if !at.used[i] {
			names = append(names, c.name())
		}
	}
	return names
}

func resolveNamed(t *Template, cands []Candidate) (*Binding, error) {
	at, err := newArgTable(cands)
	if err != nil {
		return nil, err
	}
	var sql strings.Builder
	for _, part := range t.parts {
		switch p := part.(type) {
		case *bypassPart:
			sql.WriteString(p.chunk)
		case *placeholderPart:
			i, ok := at.indexOf[p.name()]
			if !ok {
				return nil, unknownArgumentError(p.span, p.name())
			}
			at.used[i] = true
			fmt.Fprintf(&sql, "$%d", i+1)
		}
	}
	if unused := at.unused(); len(unused) > 0 {
		return nil, unusedArgumentError(unused)
	}
	b := &Binding{Mode: Named, SQL: sql.String()}
	for _, c := range at.cands {
		b.Args = append(b.Args, BoundArg{Name: c.name(), Value: c.Value, Type: c.Type})
	}
	return b, nil
}
