package typeinfo

import (
	"reflect"
	"sort"
)

// Field represents a single field from a struct type.
type Field struct {
	Type reflect.Type

	// Name is the name of the struct field.
	Name string

	// Index of this field in the structure.
	Index int
}

// Info represents reflected information about a struct type.
type Info struct {
	Type reflect.Type

	// Relate tag names to fields.
	TagToField map[string]Field
}

// Tags returns the "db" tags of the type in alphabetical order.
func (info *Info) Tags() []string {
	tags := make([]string, 0, len(info.TagToField))
	for tag := range info.TagToField {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
