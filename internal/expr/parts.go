// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"fmt"
)

// A queryPart represents a section of a parsed SQL template. The parsed
// template is represented as a list of queryParts.
type queryPart interface {
	// String returns a string representation of the part for debugging and
	// testing purposes.
	String() string

	// part is a marker method.
	part()
}

// placeholderPart represents a "$..." placeholder in the SQL template.
type placeholderPart struct {
	// raw is the placeholder as written, including the "$" marker.
	raw string
	// span locates the placeholder in the template.
	span Span
}

// name returns the text after the "$" marker.
func (p *placeholderPart) name() string {
	return p.raw[1:]
}

// positional reports whether the placeholder is made up of ASCII digits
// only, e.g. "$1".
func (p *placeholderPart) positional() bool {
	for i := 0; i < len(p.name()); i++ {
		if c := p.name()[i]; c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (p *placeholderPart) String() string {
	if p.positional() {
		return fmt.Sprintf("Positional[%s]", p.name())
	}
	return fmt.Sprintf("Named[%s]", p.name())
}

// Marker function for queryPart.
func (p *placeholderPart) part() {}

// bypassPart represents a part of the template that is passed to the
// database verbatim.
type bypassPart struct {
	chunk string
}

func (p *bypassPart) String() string {
	return "Bypass[" + p.chunk + "]"
}

// Marker function for queryPart.
func (p *bypassPart) part() {}
