// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DestinationRule maps a destination label to the classification codes that
// select it. Exactly one of Codes (set membership) or Code (literal equality)
// is set.
type DestinationRule struct {
	// Label names the destination (e.g. "B", "RET", "1945").
	Label string `json:"label" yaml:"label"`

	// Codes is the set of 964$a codes that route a record here.
	Codes []string `json:"codes,omitempty" yaml:"codes,omitempty"`

	// Code is a single literal code that routes a record here.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`
}

// SplitBucket is one sub-destination of a split destination.
type SplitBucket struct {
	// Label names the bucket (e.g. "CLE-I").
	Label string `json:"label" yaml:"label"`

	// Prefix is the leading character of the identifier suffix that selects
	// this bucket (e.g. "1").
	Prefix string `json:"prefix" yaml:"prefix"`

	// Padded is the three-character zero-padded form (e.g. "001") checked
	// only when SplitConfig.ZeroPadded is set.
	Padded string `json:"padded,omitempty" yaml:"padded,omitempty"`
}

// SplitConfig refines one destination into buckets by parsing the suffix that
// follows the parenthesised source prefix of an identifier field.
type SplitConfig struct {
	// Parent is the destination label being split (e.g. "CLE").
	Parent string `json:"parent" yaml:"parent"`

	// Tag is the identifier field parsed for the suffix (default "035").
	Tag string `json:"tag" yaml:"tag"`

	// Buckets lists the sub-destinations in evaluation order.
	Buckets []SplitBucket `json:"buckets" yaml:"buckets"`

	// ZeroPadded enables the secondary rule that matches a three-character
	// suffix prefix against each bucket's Padded form.
	ZeroPadded bool `json:"zero_padded" yaml:"zero_padded"`

	// KeepParent also routes split records to the parent destination.
	KeepParent bool `json:"keep_parent" yaml:"keep_parent"`
}

// GateConfig admits only records carrying a field whose data contains a marker.
type GateConfig struct {
	Tag      string `json:"tag" yaml:"tag"`
	Contains string `json:"contains" yaml:"contains"`
}

// FieldSpec declares one output column: which field tag feeds it and how a
// value is selected from each occurrence. With no Subfield and no range the
// whole field payload is taken.
type FieldSpec struct {
	// Column is the output column name.
	Column string `json:"column" yaml:"column"`

	// Tag is the source field tag; every occurrence is visited.
	Tag string `json:"tag" yaml:"tag"`

	// Subfield selects a single subfield code (e.g. "a", "7").
	Subfield string `json:"subfield,omitempty" yaml:"subfield,omitempty"`

	// Range selects [start, end) of the raw field payload.
	Range []int `json:"range,omitempty" yaml:"range,omitempty"`

	// TextRange selects [start, end) of the field's mnemonic rendering.
	TextRange []int `json:"text_range,omitempty" yaml:"text_range,omitempty"`

	// Numeric marks range values that must be all digits to be valid.
	Numeric bool `json:"numeric,omitempty" yaml:"numeric,omitempty"`

	// Placeholder records an absent marker for occurrences that lack the
	// subfield, keeping the column aligned with sibling columns.
	Placeholder bool `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`

	// Trim lists characters stripped from both ends of every value.
	Trim string `json:"trim,omitempty" yaml:"trim,omitempty"`

	// NFC normalizes values to Unicode composed form.
	NFC bool `json:"nfc,omitempty" yaml:"nfc,omitempty"`
}

// Profile is a complete routing and extraction configuration.
type Profile struct {
	// Name identifies the profile (e.g. "basic", "extended").
	Name string `json:"name" yaml:"name"`

	// Gate, when set, filters records before classification.
	Gate *GateConfig `json:"gate,omitempty" yaml:"gate,omitempty"`

	// Destinations lists the routing rules in output order.
	Destinations []DestinationRule `json:"destinations" yaml:"destinations"`

	// Split, when set, refines one destination into buckets.
	Split *SplitConfig `json:"split,omitempty" yaml:"split,omitempty"`

	// Fields lists the extraction columns in output order.
	Fields []FieldSpec `json:"fields" yaml:"fields"`

	// Delimiter joins multi-valued columns in flat output (default ";").
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// AbsentMarker is written for absent values in flat output.
	AbsentMarker string `json:"absent_marker" yaml:"absent_marker"`

	// Fallback, when set, is the destination for records that match no rule.
	Fallback string `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// RecordFormat selects the record-container output encoding.
type RecordFormat string

const (
	FormatBinary RecordFormat = "mrc"
	FormatText   RecordFormat = "mrk"
)

// TableFormat selects the tabular output encoding.
type TableFormat string

const (
	TableCSV    TableFormat = "csv"
	TableSQLite TableFormat = "sqlite"
)

// OutputConfig holds settings shared by destination sinks.
type OutputConfig struct {
	// Dir is the directory destination files are created in.
	Dir string `json:"dir" yaml:"dir"`

	// Prefix is prepended to every destination file name (e.g. "ucla").
	Prefix string `json:"prefix" yaml:"prefix"`

	// Records selects the record file encoding.
	Records RecordFormat `json:"records" yaml:"records"`

	// Table selects the tabular encoding.
	Table TableFormat `json:"table" yaml:"table"`

	// Separator is the CSV field separator (default ',').
	Separator rune `json:"separator" yaml:"separator"`
}
