// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"fmt"
	"strings"
)

// RawArg is one argument of a call site argument list, as parsed. It is
// either a *SingleArg or a *SplatArg.
type RawArg interface {
	// String returns a string representation of the argument for debugging
	// and testing purposes.
	String() string

	// rawArg is a marker method.
	rawArg()
}

// SingleArg is an argument binding one value.
//
//	id              inferred name "id"
//	id as int64     inferred name "id", cast to int64
//	id = acct.ID    explicit name "id"
//	acct.ID         no name
type SingleArg struct {
	// Value is the Go expression of the value, without the cast.
	Value string
	// Cast is the type following "as", if any.
	Cast string
	// Name is the name given with "name = value".
	Name string
	// Inferred is the name deduced from a plain identifier value.
	Inferred string
	Span     Span
}

func (a *SingleArg) String() string {
	var sb strings.Builder
	sb.WriteString("Single[")
	if a.Name != "" {
		sb.WriteString(a.Name + " = ")
	}
	sb.WriteString(a.Value)
	if a.Cast != "" {
		sb.WriteString(" as " + a.Cast)
	}
	if a.Inferred != "" {
		sb.WriteString(" (" + a.Inferred + ")")
	}
	sb.WriteString("]")
	return sb.String()
}

// Marker function for RawArg.
func (a *SingleArg) rawArg() {}

// SplatArg destructures a parent value into several arguments, one per
// child, e.g. "..acct{.ID, owner = .Owner.Name, .Balance() as int64}".
type SplatArg struct {
	// Parent is the Go expression being destructured.
	Parent string
	// paren is true if Parent is not a primary expression and has to be
	// enclosed in parentheses before an accessor is appended to it.
	paren    bool
	Children []RawChild
	Span     Span
}

func (a *SplatArg) String() string {
	var children []string
	for _, c := range a.Children {
		children = append(children, c.String())
	}
	return fmt.Sprintf("Splat[%s {%s}]", a.Parent, strings.Join(children, ", "))
}

// Marker function for RawArg.
func (a *SplatArg) rawArg() {}

// Value returns the Go expression accessing the child of the parent value.
func (a *SplatArg) Value(c RawChild) string {
	var sb strings.Builder
	if a.paren {
		sb.WriteString("(" + a.Parent + ")")
	} else {
		sb.WriteString(a.Parent)
	}
	for _, acc := range c.Path {
		sb.WriteString(acc.String())
	}
	return sb.String()
}

// RawChild is one destructured member of a splat.
type RawChild struct {
	// Rename is the name given with "name = .path", if any.
	Rename string
	// Path is the sequence of accessors applied to the parent value.
	Path []Accessor
	// Cast is the type following "as", if any.
	Cast string
	Span Span
}

// Inferred returns the name the child is bound to when it is not renamed:
// the field name if the path is exactly one field access, "" otherwise.
func (c RawChild) Inferred() string {
	if len(c.Path) == 1 && c.Path[0].Kind == MemberAccessor {
		return c.Path[0].Name
	}
	return ""
}

func (c RawChild) String() string {
	var sb strings.Builder
	if c.Rename != "" {
		sb.WriteString(c.Rename + " = ")
	}
	for _, acc := range c.Path {
		sb.WriteString(acc.String())
	}
	if c.Cast != "" {
		sb.WriteString(" as " + c.Cast)
	}
	return sb.String()
}

// AccessorKind tells apart the accessors of a splat child path.
type AccessorKind int

const (
	// MemberAccessor selects a field: ".Name".
	MemberAccessor AccessorKind = iota
	// IndexAccessor selects an element by position: ".0", written "[0]".
	IndexAccessor
	// MethodAccessor calls a method: ".Name(args)".
	MethodAccessor
)

// Accessor is one step of a splat child path.
type Accessor struct {
	Kind AccessorKind
	// Name is the field or method name, or the decimal index.
	Name string
	// Args is the raw argument list of a method accessor.
	Args string
}

// String returns the Go source of the accessor, to be appended to the
// expression it applies to.
func (acc Accessor) String() string {
	switch acc.Kind {
	case IndexAccessor:
		return "[" + acc.Name + "]"
	case MethodAccessor:
		return "." + acc.Name + "(" + acc.Args + ")"
	}
	return "." + acc.Name
}
