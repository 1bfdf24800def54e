package typeinfo

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
)

var cacheMutex sync.RWMutex
var cache = make(map[reflect.Type]*Info)

// TypeInfo returns the Info of the type t, generating and caching as
// required. Pointer types are dereferenced.
func TypeInfo(t reflect.Type) (*Info, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	cacheMutex.RLock()
	info, found := cache[t]
	cacheMutex.RUnlock()
	if found {
		return info, nil
	}

	info, err := generate(t)
	if err != nil {
		return &Info{}, err
	}

	cacheMutex.Lock()
	cache[t] = info
	cacheMutex.Unlock()

	return info, nil
}

// generate produces and returns reflection information for the struct type
// that is required to decode query results into it.
func generate(typ reflect.Type) (*Info, error) {
	// Reflection information is only generated for structs.
	if typ.Kind() != reflect.Struct {
		return &Info{}, fmt.Errorf("can only reflect struct type")
	}

	info := Info{
		TagToField: make(map[string]Field),
		Type:       typ,
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		// Fields without a "db" tag are not decoded into.
		tag := field.Tag.Get("db")
		if tag == "" {
			continue
		}
		tag, err := parseTag(tag)
		if err != nil {
			return &Info{}, err
		}
		if !field.IsExported() {
			return &Info{}, fmt.Errorf("field %q of struct %q with 'db' tag is not exported", field.Name, typ.Name())
		}
		if other, ok := info.TagToField[tag]; ok {
			return &Info{}, fmt.Errorf("fields %q and %q of struct %q have the same 'db' tag %q", other.Name, field.Name, typ.Name(), tag)
		}
		info.TagToField[tag] = Field{
			Name:  field.Name,
			Index: i,
			Type:  field.Type,
		}
	}

	return &info, nil
}

// This expression should be aligned with the column names that can be
// written unquoted in SQL.
var validColNameRx = regexp.MustCompile(`^([a-zA-Z_])+([a-zA-Z_0-9])*$`)

// parseTag parses the input tag string and returns its name. The
// "omitempty" option, used when inserting structs, is allowed and ignored
// since values are only decoded into.
func parseTag(tag string) (string, error) {
	options := strings.Split(tag, ",")

	// Refuse to parse if there are more than 2 items.
	if len(options) > 2 {
		return "", fmt.Errorf("too many options in 'db' tag")
	}
	if len(options) == 2 && strings.ToLower(options[1]) != "omitempty" {
		return "", fmt.Errorf("unexpected tag value %q", options[1])
	}

	name := options[0]
	if len(name) == 0 {
		return "", fmt.Errorf("empty db tag")
	}

	if !validColNameRx.MatchString(name) {
		return "", fmt.Errorf("invalid column name in 'db' tag")
	}

	return name, nil
}
