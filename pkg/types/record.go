// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Tags with a fixed meaning in the pipeline.
const (
	TagLeader         = "LDR"
	TagFormat         = "FMT"
	TagControlNumber  = "001"
	TagFixedData      = "008"
	TagSystemNumber   = "035"
	TagCollection     = "599"
	TagClassification = "964"
)

// Subfield is a single-character-keyed value within a data field.
type Subfield struct {
	Code  byte   `json:"code" yaml:"code"`
	Value string `json:"value" yaml:"value"`
}

// Field is one tagged unit of a Record. Control fields carry their payload in
// Value; data fields carry indicators and subfields.
type Field struct {
	// Tag is the three-character field tag (e.g. "245", "008", "FMT").
	Tag string `json:"tag" yaml:"tag"`

	// Value is the raw payload of a control field.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// Indicators are the two indicator characters of a data field.
	Indicators [2]byte `json:"indicators" yaml:"indicators"`

	// Subfields lists the subfields of a data field in source order.
	Subfields []Subfield `json:"subfields,omitempty" yaml:"subfields,omitempty"`

	control bool
}

// NewControlField returns a control field carrying a raw payload.
func NewControlField(tag, value string) Field {
	return Field{Tag: tag, Value: value, control: true}
}

// NewDataField returns a data field with blank indicators.
func NewDataField(tag string, subfields ...Subfield) Field {
	return Field{Tag: tag, Indicators: [2]byte{' ', ' '}, Subfields: subfields}
}

// IsControl reports whether f is a control field.
func (f Field) IsControl() bool {
	return f.control
}

// Subfield returns the value of the first subfield with the given code.
func (f Field) Subfield(code byte) (string, bool) {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf.Value, true
		}
	}
	return "", false
}

// Data returns the payload of a control field, or the values of all
// subfields of a data field joined by a single space.
func (f Field) Data() string {
	if f.control {
		return f.Value
	}
	vals := make([]string, len(f.Subfields))
	for i, sf := range f.Subfields {
		vals[i] = sf.Value
	}
	return strings.Join(vals, " ")
}

// Text renders the field in MARC mnemonic form, e.g. "=245  10$aTitle /".
// Blank indicators are written as a backslash.
func (f Field) Text() string {
	var b strings.Builder
	b.WriteByte('=')
	b.WriteString(f.Tag)
	b.WriteString("  ")
	if f.control {
		b.WriteString(strings.ReplaceAll(f.Value, " ", "\\"))
		return b.String()
	}
	for _, ind := range f.Indicators {
		if ind == ' ' || ind == 0 {
			b.WriteByte('\\')
		} else {
			b.WriteByte(ind)
		}
	}
	for _, sf := range f.Subfields {
		b.WriteByte('$')
		b.WriteByte(sf.Code)
		b.WriteString(sf.Value)
	}
	return b.String()
}

// Record is one bibliographic catalog entry.
type Record struct {
	// Leader is the 24-byte record leader.
	Leader string `json:"leader" yaml:"leader"`

	// Fields lists the record's fields in source order.
	Fields []Field `json:"fields" yaml:"fields"`
}

// FieldsByTag returns every field carrying tag, in source order.
func (r *Record) FieldsByTag(tag string) []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// ControlNumber returns the 001 payload, or "" when absent.
func (r *Record) ControlNumber() string {
	for _, f := range r.Fields {
		if f.Tag == TagControlNumber {
			return f.Data()
		}
	}
	return ""
}

// Stripped returns a copy of r without the LDR and FMT fields that some
// catalog exports carry as ordinary fields.
func (r *Record) Stripped() *Record {
	out := &Record{Leader: r.Leader, Fields: make([]Field, 0, len(r.Fields))}
	for _, f := range r.Fields {
		if f.Tag == TagLeader || f.Tag == TagFormat {
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	return out
}

// String renders the record in mnemonic form, one field per line.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString("=LDR  ")
	b.WriteString(strings.ReplaceAll(r.Leader, " ", "\\"))
	for _, f := range r.Fields {
		b.WriteByte('\n')
		b.WriteString(f.Text())
	}
	return b.String()
}
