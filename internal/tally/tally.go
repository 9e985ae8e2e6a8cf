// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tally counts extracted values across a corpus for reporting. It
// observes rows after they are routed and never feeds back into routing.
package tally

import (
	"sort"
	"strings"

	"github.com/pdiddy/marcsplit/pkg/types"
)

// Count is one value and the number of rows it occurred in.
type Count struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// YearTop is the most common value of a column within one year.
type YearTop struct {
	Year  string `json:"year" yaml:"year"`
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// Tally accumulates value frequencies for a set of columns, overall and per
// year.
type Tally struct {
	columns []string
	year    string
	rows    int
	counts  map[string]map[string]int
	byYear  map[string]map[string]map[string]int
}

// New returns a Tally over columns. yearColumn, if not empty, names the column
// whose first valid value keys the per-year counts.
func New(columns []string, yearColumn string) *Tally {
	t := &Tally{
		columns: columns,
		year:    yearColumn,
		counts:  make(map[string]map[string]int, len(columns)),
		byYear:  make(map[string]map[string]map[string]int, len(columns)),
	}
	for _, c := range columns {
		t.counts[c] = make(map[string]int)
		t.byYear[c] = make(map[string]map[string]int)
	}
	return t
}

// Columns returns the tallied columns.
func (t *Tally) Columns() []string {
	return t.columns
}

// Rows returns the number of rows observed.
func (t *Tally) Rows() int {
	return t.rows
}

// Observe counts the valid, non-empty values of every tallied column of row.
// A value repeated within one row is counted once.
func (t *Tally) Observe(row types.Row) {
	t.rows++
	year := t.rowYear(row)
	for _, c := range t.columns {
		values, ok := row.Get(c)
		if !ok {
			continue
		}
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			s := strings.TrimSpace(v.Text)
			if !v.Valid || s == "" || seen[s] {
				continue
			}
			seen[s] = true
			t.counts[c][s]++
			if year == "" {
				continue
			}
			perYear := t.byYear[c][year]
			if perYear == nil {
				perYear = make(map[string]int)
				t.byYear[c][year] = perYear
			}
			perYear[s]++
		}
	}
}

func (t *Tally) rowYear(row types.Row) string {
	if t.year == "" {
		return ""
	}
	values, _ := row.Get(t.year)
	for _, v := range values {
		if v.Valid && v.Text != "" {
			return v.Text
		}
	}
	return ""
}

// Top returns the n most frequent values of column, most frequent first and
// alphabetical among equals. n <= 0 returns every value.
func (t *Tally) Top(column string, n int) []Count {
	out := sorted(t.counts[column])
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MostCommonByYear returns, for every year observed, the most frequent value
// of column, ordered by year.
func (t *Tally) MostCommonByYear(column string) []YearTop {
	years := make([]string, 0, len(t.byYear[column]))
	for y := range t.byYear[column] {
		years = append(years, y)
	}
	sort.Strings(years)

	out := make([]YearTop, 0, len(years))
	for _, y := range years {
		top := sorted(t.byYear[column][y])
		if len(top) == 0 {
			continue
		}
		out = append(out, YearTop{Year: y, Value: top[0].Value, Count: top[0].Count})
	}
	return out
}

func sorted(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for v, n := range m {
		out = append(out, Count{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
