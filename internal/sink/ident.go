// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ident turns a column name into a SQL identifier: diacritics are folded,
// letters lowered and every other run of characters becomes one underscore.
// "Author Code" and "Žánr" become "author_code" and "zanr".
func Ident(name string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrColumnName, name, err)
	}

	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	id := b.String()
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrColumnName, name)
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "c_" + id
	}
	return id, nil
}

// idents maps column names to distinct identifiers.
func idents(columns []string) ([]string, error) {
	out := make([]string, len(columns))
	seen := make(map[string]string, len(columns))
	for i, c := range columns {
		id, err := Ident(c)
		if err != nil {
			return nil, err
		}
		if id == "source" || id == "id" {
			id = "col_" + id
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: %q and %q both map to %s", ErrColumnName, prev, c, id)
		}
		seen[id] = c
		out[i] = id
	}
	return out, nil
}
