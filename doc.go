/*
Package sqlnamed lets SQL queries refer to their arguments by name.

Queries are declared in directive comments and turned into Go functions by
the sqlnamed command, run with go generate:

	//go:generate go run github.com/canonical/sqlnamed/cmd/sqlnamed

	//sqlnamed FindAccount(id int64, team string) query_as(Account,
	//	"SELECT id, name FROM account WHERE id = $id AND team = $team", id, team)

The command rewrites the named placeholders of the SQL into positional ones
and generates a function passing the arguments in the right order:

	func FindAccount(ctx context.Context, q sqlnamed.Querier, id int64, team string) *sqlnamed.RecordQuery[Account] {
		return sqlnamed.QueryAs[Account](ctx, q, "SELECT id, name FROM account WHERE id = $1 AND team = $2", id, team)
	}

A query that only uses "$1", "$2", ... placeholders is positional: its SQL is
kept as is and the arguments are passed in the order they are written.

# Arguments

An argument is a Go expression. It is named after the identifier it is made
of, or explicitly with "name = expression":

	id, team = acct.Team

A cast converts the argument and keeps the name of the identifier. The "_"
type keeps the argument as it is:

	id as int32, flag as _

A splat destructures a value into several arguments, each named after its
field or explicitly:

	..acct{.ID, owner = .Owner.Name, total = .Total() as int64}

Every argument of a named query must be used by a placeholder, and every
placeholder must have an argument.

# Variants

The query shape is chosen by the variant name of the directive:

	query          rows decoded as [Row] maps
	query_scalar   a single column decoded into the type given first
	query_as       rows decoded into the struct type given first

The "_file" variants (query_file, query_file_as, query_file_scalar) read the
SQL from a file relative to the module root. Each variant has an
"_unchecked" form. Checked queries are verified against a database at
generation time when one is configured, and decode results strictly at run
time; unchecked queries skip verification and decode leniently.

# Running queries

The generated functions take a [Querier], which [*sql.DB], [*sql.Tx] and
[*DB] satisfy. A [DB] keeps the statements it prepares in an LRU cache.
*/
package sqlnamed
