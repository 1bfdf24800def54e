// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

var scannerInterface = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// ScanProxy is a shim for scanning query results into values that cannot
// hold NULL.
type ScanProxy struct {
	original reflect.Value
	scan     reflect.Value
}

// OnSuccess copies the scanned value into the original value, zeroing it if
// the column was NULL. It must be called once rows.Scan has succeeded.
func (sp ScanProxy) OnSuccess() {
	var val reflect.Value
	if !sp.scan.IsNil() {
		val = sp.scan.Elem()
	} else {
		val = reflect.Zero(sp.original.Type())
	}
	sp.original.Set(val)
}

// ScanTarget returns a pointer to pass to rows.Scan in order to set val.
//
// rows.Scan will return an error if it tries to scan NULL into a type that
// cannot be set to nil, so for types that are not a pointer and do not
// implement sql.Scanner, a pointer to them is generated and passed to
// rows.Scan instead, along with a ScanProxy that sets val from it.
func ScanTarget(val reflect.Value) (any, *ScanProxy) {
	pt := reflect.PointerTo(val.Type())
	if val.Kind() != reflect.Pointer && !pt.Implements(scannerInterface) {
		scanVal := reflect.New(pt).Elem()
		return scanVal.Addr().Interface(), &ScanProxy{original: val, scan: scanVal}
	}
	return val.Addr().Interface(), nil
}

// ScanTargets returns the rows.Scan targets decoding the given result
// columns into the fields of the addressable struct value v.
//
// If strict is true, every column must match the "db" tag of a field and no
// column may appear twice. Otherwise columns without a matching field are
// discarded and later columns overwrite earlier ones.
func (info *Info) ScanTargets(v reflect.Value, columns []string, strict bool) ([]any, []*ScanProxy, error) {
	if v.Type() != info.Type {
		return nil, nil, fmt.Errorf("internal error: cannot scan into %s with info of %s", v.Type(), info.Type)
	}
	targets := make([]any, 0, len(columns))
	var proxies []*ScanProxy
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		field, ok := info.TagToField[col]
		if !ok {
			if strict {
				return nil, nil, fmt.Errorf("column %q not found in %s, have tags: %s", col, info.Type, strings.Join(info.Tags(), ", "))
			}
			targets = append(targets, new(any))
			continue
		}
		if strict && seen[col] {
			return nil, nil, fmt.Errorf("column %q appears more than once in results", col)
		}
		seen[col] = true
		target, proxy := ScanTarget(v.Field(field.Index))
		targets = append(targets, target)
		if proxy != nil {
			proxies = append(proxies, proxy)
		}
	}
	return targets, proxies, nil
}
