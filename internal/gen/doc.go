// Package gen turns the query directives of a Go package into Go functions
// running the queries with positional arguments.
//
// Each directive goes through the stages of package expr: its SQL template
// and argument list are parsed, the arguments are bound to the placeholders
// and the rewritten SQL is emitted along with the bound values, in
// placeholder order. Errors are reported as Diagnostics located in the Go
// source.
package gen
