/*
Package expr rewrites named SQL templates into positional ones and binds
their placeholders to Go value expressions. It does not interact with
databases and never evaluates the expressions it handles.

The package is split up into three stages: the Template stage, the Argument
stage, and the Resolve stage.

# Template stage

ParseTemplate splits the SQL text into placeholders and the text in between.
A placeholder is "$" followed by letters, digits and underscores. Text inside
string literals, quoted identifiers, comments and dollar quoted strings is
never scanned for placeholders. A template whose placeholders are all made of
digits is positional, any other template is named.

# Argument stage

ParseArgs parses the argument list of a call site. An argument is a Go
expression, optionally cast with "as Type" and optionally named with
"name = value". A splat, "..parent{.field, name = .Method(), .0}",
destructures a value into several arguments. Normalize flattens the parsed
arguments into candidates.

# Resolve stage

Resolve binds the candidates to the placeholders. Positional templates are
passed through unchanged. In named templates each placeholder is rewritten to
"$N", N being the position of the argument with that name, and every argument
must be named, unique and used.
*/
package expr
