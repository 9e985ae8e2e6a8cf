// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/marcsplit/pkg/types"
)

// DefaultDelimiter joins multi-valued columns in flat output.
const DefaultDelimiter = ";"

// normalize applies a column's post-processing rules to a valid value.
func normalize(spec types.FieldSpec, v types.Value) types.Value {
	if !v.Valid {
		return v
	}
	s := v.Text
	if spec.NFC {
		s = norm.NFC.String(s)
	}
	if spec.Trim != "" && s != "" {
		s = strings.Trim(s, spec.Trim)
	}
	return types.Text(s)
}

// Flatten joins each column's values with delim, writing absent values as
// marker. The result has one entry per column, in column order.
func Flatten(row types.Row, delim, marker string) []string {
	if delim == "" {
		delim = DefaultDelimiter
	}
	out := make([]string, len(row.Columns))
	for i, c := range row.Columns {
		parts := make([]string, len(c.Values))
		for j, v := range c.Values {
			if v.Valid {
				parts[j] = v.Text
			} else {
				parts[j] = marker
			}
		}
		out[i] = strings.Join(parts, delim)
	}
	return out
}
