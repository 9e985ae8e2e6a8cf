// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tally

import (
	"encoding/json"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Report is the exported form of a Tally.
type Report struct {
	Rows    int            `json:"rows" yaml:"rows"`
	Columns []ColumnReport `json:"columns" yaml:"columns"`
}

// ColumnReport holds the frequencies of one column.
type ColumnReport struct {
	Column string    `json:"column" yaml:"column"`
	Top    []Count   `json:"top" yaml:"top"`
	ByYear []YearTop `json:"by_year,omitempty" yaml:"by_year,omitempty"`
}

// Report summarises the tally, keeping the n most frequent values per column.
func (t *Tally) Report(n int) Report {
	r := Report{Rows: t.rows}
	for _, c := range t.columns {
		cr := ColumnReport{Column: c, Top: t.Top(c, n)}
		if t.year != "" {
			cr.ByYear = t.MostCommonByYear(c)
		}
		r.Columns = append(r.Columns, cr)
	}
	return r
}

// ExportYAML writes the report to path as YAML.
func (r Report) ExportYAML(path string) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the report to path as indented JSON.
func (r Report) ExportJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
