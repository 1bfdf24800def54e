// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package typeinfo contains the reflection code of the query runtime. It
extracts the "db" tags of the record types that query results are decoded
into, and builds the targets handed to rows.Scan for them.
*/
package typeinfo
