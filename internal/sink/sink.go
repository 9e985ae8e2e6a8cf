// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink provides the per-destination writers the router hands units
// to: record files (.mrc, .mrk) for the divide path and tables (CSV, SQLite)
// for the extract path. Every destination owns one file named
// <dir>/<prefix>_<label>.<ext>.
package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/marcsplit/internal/route"
	"github.com/pdiddy/marcsplit/pkg/types"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrNoColumns     = errors.New("table has no columns")
	ErrColumnName    = errors.New("invalid column name")
)

// Path returns the file a destination writes to.
func Path(out types.OutputConfig, label, ext string) string {
	name := label + "." + ext
	if out.Prefix != "" {
		name = out.Prefix + "_" + name
	}
	return filepath.Join(out.Dir, name)
}

// OpenRecords opens one record file per label and registers it with a new
// Router. On failure every file already opened is closed.
func OpenRecords(out types.OutputConfig, labels []string, log *zap.Logger) (*route.Router[*types.Record], error) {
	format := out.Records
	if format == "" {
		format = types.FormatBinary
	}
	if format != types.FormatBinary && format != types.FormatText {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err := mkdir(out.Dir); err != nil {
		return nil, err
	}

	r := route.New[*types.Record](log)
	for _, label := range labels {
		s, err := CreateRecordFile(Path(out, label, string(format)), format)
		if err == nil {
			err = r.Add(label, s)
		}
		if err != nil {
			return nil, errors.Join(fmt.Errorf("opening destination %s: %w", label, err), r.Close())
		}
	}
	return r, nil
}

// OpenRows opens one table per label with the given columns and registers
// it with a new Router. On failure every table already opened is closed.
func OpenRows(out types.OutputConfig, labels, columns []string, flat Flat, log *zap.Logger) (*route.Router[types.Row], error) {
	format := out.Table
	if format == "" {
		format = types.TableCSV
	}
	if err := mkdir(out.Dir); err != nil {
		return nil, err
	}

	r := route.New[types.Row](log)
	for _, label := range labels {
		var (
			s   route.Sink[types.Row]
			err error
		)
		switch format {
		case types.TableCSV:
			s, err = CreateCSV(Path(out, label, "csv"), columns, out.Separator, flat)
		case types.TableSQLite:
			s, err = OpenTable(Path(out, label, "db"), columns, flat)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
		}
		if err == nil {
			err = r.Add(label, s)
		}
		if err != nil {
			return nil, errors.Join(fmt.Errorf("opening destination %s: %w", label, err), r.Close())
		}
	}
	return r, nil
}

// Flat holds the settings used to render multi-valued columns as one cell.
type Flat struct {
	Delimiter    string
	AbsentMarker string
}

func mkdir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return nil
}
