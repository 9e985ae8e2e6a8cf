// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns a catalog record into one tabular row according to a
// declarative list of field specs. Extraction is a pure function of the
// record and the specs; frequency counting is left to observers of the
// emitted rows.
package extract

import (
	"errors"
	"fmt"

	"github.com/pdiddy/marcsplit/pkg/types"
)

// Sentinel errors for spec validation and malformed records.
var (
	ErrSpec         = errors.New("invalid field spec")
	ErrControlField = errors.New("subfield selector applied to a control field")
	ErrNoSubfields  = errors.New("data field has no subfields")
)

// RecordError reports a record whose structure prevented building a row.
// The partial row is discarded.
type RecordError struct {
	// Source is the record's control number, if any.
	Source string

	// Leader is the record leader.
	Leader string

	// Column is the output column being built when extraction failed.
	Column string

	// Field is the mnemonic dump of the field that triggered the failure.
	Field string

	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("column %q from %s: %v", e.Column, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

type selector int

const (
	selectWhole selector = iota
	selectSubfield
	selectRange
	selectTextRange
)

type column struct {
	spec       types.FieldSpec
	sel        selector
	code       byte
	start, end int
}

// Extractor is a validated, ready-to-use list of field specs.
type Extractor struct {
	cols []column
}

// New validates specs and compiles them into an Extractor.
func New(specs []types.FieldSpec) (*Extractor, error) {
	e := &Extractor{cols: make([]column, 0, len(specs))}
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		c, err := compile(s)
		if err != nil {
			return nil, fmt.Errorf("%w: spec %d (%q): %v", ErrSpec, i, s.Column, err)
		}
		if seen[s.Column] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrSpec, s.Column)
		}
		seen[s.Column] = true
		e.cols = append(e.cols, c)
	}
	return e, nil
}

func compile(s types.FieldSpec) (column, error) {
	c := column{spec: s}
	if s.Column == "" {
		return c, errors.New("column name is empty")
	}
	if len(s.Tag) != 3 {
		return c, fmt.Errorf("tag %q is not three characters", s.Tag)
	}

	selectors := 0
	if s.Subfield != "" {
		if len(s.Subfield) != 1 {
			return c, fmt.Errorf("subfield %q is not a single character", s.Subfield)
		}
		c.sel, c.code = selectSubfield, s.Subfield[0]
		selectors++
	}
	for _, r := range []struct {
		bounds []int
		sel    selector
	}{{s.Range, selectRange}, {s.TextRange, selectTextRange}} {
		if r.bounds == nil {
			continue
		}
		if len(r.bounds) != 2 || r.bounds[0] < 0 || r.bounds[0] >= r.bounds[1] {
			return c, fmt.Errorf("range %v must be [start, end) with 0 <= start < end", r.bounds)
		}
		c.sel, c.start, c.end = r.sel, r.bounds[0], r.bounds[1]
		selectors++
	}
	if selectors > 1 {
		return c, errors.New("subfield, range and text_range are mutually exclusive")
	}
	if s.Placeholder && c.sel != selectSubfield {
		return c, errors.New("placeholder requires a subfield selector")
	}
	if s.Numeric && c.sel != selectRange && c.sel != selectTextRange {
		return c, errors.New("numeric requires a range selector")
	}
	return c, nil
}

// Columns returns the output column names in order.
func (e *Extractor) Columns() []string {
	names := make([]string, len(e.cols))
	for i, c := range e.cols {
		names[i] = c.spec.Column
	}
	return names
}

// Extract builds the row for rec. Every occurrence of each spec's tag is
// visited; a tag that never occurs yields an empty column. Out-of-range or
// non-numeric slices become absent values. Structural problems fail the
// whole record with a *RecordError.
func (e *Extractor) Extract(rec *types.Record) (types.Row, error) {
	row := types.Row{Source: rec.ControlNumber(), Columns: make([]types.Column, 0, len(e.cols))}
	for _, c := range e.cols {
		values := []types.Value{}
		for _, f := range rec.FieldsByTag(c.spec.Tag) {
			v, ok, err := c.selectValue(f)
			if err != nil {
				return types.Row{}, &RecordError{
					Source: row.Source,
					Leader: rec.Leader,
					Column: c.spec.Column,
					Field:  f.Text(),
					Err:    err,
				}
			}
			if ok {
				values = append(values, normalize(c.spec, v))
			}
		}
		row.Columns = append(row.Columns, types.Column{Name: c.spec.Column, Values: values})
	}
	return row, nil
}

// Extract is a convenience wrapper compiling specs for a single record.
func Extract(rec *types.Record, specs []types.FieldSpec) (types.Row, error) {
	e, err := New(specs)
	if err != nil {
		return types.Row{}, err
	}
	return e.Extract(rec)
}

// selectValue returns the value of one field occurrence. ok is false when the
// occurrence contributes nothing to the column.
func (c column) selectValue(f types.Field) (types.Value, bool, error) {
	switch c.sel {
	case selectSubfield:
		if f.IsControl() {
			return types.Value{}, false, ErrControlField
		}
		if len(f.Subfields) == 0 {
			return types.Value{}, false, ErrNoSubfields
		}
		if v, ok := f.Subfield(c.code); ok {
			return types.Text(v), true, nil
		}
		if c.spec.Placeholder {
			return types.Absent(), true, nil
		}
		return types.Value{}, false, nil
	case selectRange:
		return slice(f.Data(), c.start, c.end, c.spec.Numeric), true, nil
	case selectTextRange:
		return slice(f.Text(), c.start, c.end, c.spec.Numeric), true, nil
	default:
		if !f.IsControl() && len(f.Subfields) == 0 {
			return types.Value{}, false, ErrNoSubfields
		}
		return types.Text(f.Data()), true, nil
	}
}

// slice returns characters [start, end) of s, or the absent marker when s is
// too short or, for numeric slices, not all digits.
func slice(s string, start, end int, numeric bool) types.Value {
	r := []rune(s)
	if end > len(r) {
		return types.Absent()
	}
	out := string(r[start:end])
	if numeric && !isDigits(out) {
		return types.Absent()
	}
	return types.Text(out)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
