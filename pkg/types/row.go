// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Value is one extracted occurrence. An invalid Value is the explicit absent
// marker: the field occurrence was present but yielded nothing usable.
type Value struct {
	Text  string `json:"text" yaml:"text"`
	Valid bool   `json:"valid" yaml:"valid"`
}

// Text returns a valid Value holding s.
func Text(s string) Value {
	return Value{Text: s, Valid: true}
}

// Absent returns the explicit absent marker.
func Absent() Value {
	return Value{}
}

// Column holds every value collected for one output column of a Row.
type Column struct {
	Name   string  `json:"name" yaml:"name"`
	Values []Value `json:"values" yaml:"values"`
}

// Row is the tabular record produced from one source Record. Columns appear
// in field spec order; a column whose tag never occurred has no values.
type Row struct {
	// Source identifies the record the row came from (its 001, if any).
	Source  string   `json:"source,omitempty" yaml:"source,omitempty"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// Get returns the values of the named column and whether it exists.
func (r Row) Get(name string) ([]Value, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (r Row) Names() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}
