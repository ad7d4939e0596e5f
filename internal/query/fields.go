package query

import (
	"fmt"
	"strings"
)

// Field names a sortable and filterable property of a Match.
type Field int

const (
	FieldAPK Field = iota
	FieldVolume
	FieldAlcohol
	FieldPrice
	FieldName
	FieldType
)

var fieldNames = map[Field]string{
	FieldAPK:     "apk",
	FieldVolume:  "volume",
	FieldAlcohol: "alcohol",
	FieldPrice:   "price",
	FieldName:    "name",
	FieldType:    "type",
}

// AllFields returns every known field in canonical order.
func AllFields() []Field {
	return []Field{FieldAPK, FieldVolume, FieldAlcohol, FieldPrice, FieldName, FieldType}
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// Text reports whether the field holds text rather than a number.
func (f Field) Text() bool {
	return f == FieldName || f == FieldType
}

// Canonical rewrites common short and Swedish forms of a field name.
// Applying it twice gives the same result as applying it once.
func Canonical(term string) string {
	term = strings.ReplaceAll(term, "volym", "volume")
	if term == "vol" {
		term = "volume"
	}
	if !strings.Contains(term, "alcohol") {
		term = strings.ReplaceAll(term, "alc", "alcohol")
	}
	term = strings.ReplaceAll(term, "alkohol", "alcohol")
	term = strings.ReplaceAll(term, "abv", "alcohol")
	term = strings.ReplaceAll(term, "pris", "price")
	return term
}

// LookupField resolves a user-supplied name, after alias canonicalisation,
// to a Field.
func LookupField(name string) (Field, bool) {
	canon := Canonical(name)
	for _, f := range AllFields() {
		if fieldNames[f] == canon {
			return f, true
		}
	}
	return 0, false
}

func fieldList() string {
	names := make([]string, 0, len(fieldNames))
	for _, f := range AllFields() {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}
