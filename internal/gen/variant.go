// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package gen

import (
	"fmt"
	"strings"
)

// Shape is the form query results are decoded into.
type Shape int

const (
	// RowShape decodes rows into sqlnamed.Row maps.
	RowShape Shape = iota
	// ScalarShape decodes the single column of each row into a Go type.
	ScalarShape
	// RecordShape decodes each row into a struct with "db" tags.
	RecordShape
)

// Variant is a query variant, as named in a directive.
//
//	query[_file][_as|_scalar][_unchecked]
type Variant struct {
	Name  string
	Shape Shape
	// File is true if the directive gives the path of a file holding the
	// SQL rather than the SQL itself.
	File bool
	// Unchecked variants are not verified against the database and decode
	// their results leniently.
	Unchecked bool
}

// ParseVariant returns the variant with the given name.
func ParseVariant(name string) (Variant, error) {
	v := Variant{Name: name}
	rest, ok := strings.CutPrefix(name, "query")
	if !ok {
		return Variant{}, fmt.Errorf("unknown query variant %q", name)
	}
	rest, v.File = strings.CutPrefix(rest, "_file")
	if r, ok := strings.CutPrefix(rest, "_as"); ok {
		rest, v.Shape = r, RecordShape
	} else if r, ok := strings.CutPrefix(rest, "_scalar"); ok {
		rest, v.Shape = r, ScalarShape
	}
	rest, v.Unchecked = strings.CutPrefix(rest, "_unchecked")
	if rest != "" {
		return Variant{}, fmt.Errorf("unknown query variant %q", name)
	}
	return v, nil
}

// Variants returns the names of every query variant.
func Variants() []string {
	var names []string
	for _, file := range []string{"", "_file"} {
		for _, shape := range []string{"", "_as", "_scalar"} {
			for _, unchecked := range []string{"", "_unchecked"} {
				names = append(names, "query"+file+shape+unchecked)
			}
		}
	}
	return names
}

// TakesType reports whether the directive gives a result type before the
// SQL.
func (v Variant) TakesType() bool {
	return v.Shape != RowShape
}

// Checked reports whether the query is verified when a database is
// configured.
func (v Variant) Checked() bool {
	return !v.Unchecked
}

// runtimeFunc returns the name of the sqlnamed function running the query.
func (v Variant) runtimeFunc() string {
	var name string
	switch v.Shape {
	case RowShape:
		name = "Query"
	case ScalarShape:
		name = "QueryScalar"
	case RecordShape:
		name = "QueryAs"
	}
	if v.Unchecked {
		name += "Unchecked"
	}
	return name
}

// call returns the sqlnamed function running the query, instantiated with
// the result type if needed.
func (v Variant) call(typ string) string {
	if v.TakesType() {
		return "sqlnamed." + v.runtimeFunc() + "[" + typ + "]"
	}
	return "sqlnamed." + v.runtimeFunc()
}

// resultType returns the type of the query built by the runtime function.
func (v Variant) resultType(typ string) string {
	switch v.Shape {
	case ScalarShape:
		return "*sqlnamed.ScalarQuery[" + typ + "]"
	case RecordShape:
		return "*sqlnamed.RecordQuery[" + typ + "]"
	}
	return "*sqlnamed.RowQuery"
}
