// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/pdiddy/marcsplit/internal/extract"
	"github.com/pdiddy/marcsplit/pkg/types"
)

// CSV writes extracted rows of one destination as delimited text. The header
// is written once, when the file is created.
type CSV struct {
	path    string
	f       *os.File
	w       *csv.Writer
	columns int
	flat    Flat
}

// CreateCSV truncates or creates path and writes the header row. A zero
// separator means a comma.
func CreateCSV(path string, columns []string, sep rune, flat Flat) (*CSV, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if sep != 0 {
		w.Comma = sep
	}
	c := &CSV{path: path, f: f, w: w, columns: len(columns), flat: flat}
	if err := c.writeLine(columns); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return c, nil
}

// Write appends row as one line, joining multi-valued columns.
func (c *CSV) Write(row types.Row) error {
	cells := extract.Flatten(row, c.flat.Delimiter, c.flat.AbsentMarker)
	if len(cells) != c.columns {
		return fmt.Errorf("row %s has %d columns, header has %d", row.Source, len(cells), c.columns)
	}
	return c.writeLine(cells)
}

func (c *CSV) writeLine(cells []string) error {
	if err := c.w.Write(cells); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the file.
func (c *CSV) Close() error {
	c.w.Flush()
	flushErr := c.w.Error()
	closeErr := c.f.Close()
	if flushErr != nil {
		return fmt.Errorf("flushing %s: %w", c.path, flushErr)
	}
	return closeErr
}
