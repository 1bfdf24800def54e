// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

// Candidate is a single value to bind to the placeholders of a template,
// after splats have been expanded.
type Candidate struct {
	// Name is the name given explicitly, either "name = value" or a renamed
	// splat child.
	Name string
	// Inferred is the name deduced from the value when none is given.
	Inferred string
	// Value is the Go expression of the value.
	Value string
	// Type is the Go type the value is converted to, "_" or "" for none.
	Type string
	Span Span
}

// name returns the name the candidate is bound to, or "" if it has none.
func (c Candidate) name() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Inferred
}

// Normalize flattens the parsed arguments into candidates, expanding each
// splat into one candidate per child. Source order is preserved.
func Normalize(args []RawArg) []Candidate {
	var cands []Candidate
	for _, arg := range args {
		switch arg := arg.(type) {
		case *SingleArg:
			cands = append(cands, Candidate{
				Name:     arg.Name,
				Inferred: arg.Inferred,
				Value:    arg.Value,
				Type:     arg.Cast,
				Span:     arg.Span,
			})
		case *SplatArg:
			for _, child := range arg.Children {
				cands = append(cands, Candidate{
					Name:     child.Rename,
					Inferred: child.Inferred(),
					Value:    arg.Value(child),
					Type:     child.Cast,
					Span:     child.Span,
				})
			}
		}
	}
	return cands
}
