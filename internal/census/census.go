// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package census counts the records of a record file and the span of their
// publication years.
package census

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/marcsplit/internal/marc"
	"github.com/pdiddy/marcsplit/pkg/types"
)

// Date one occupies positions 7..11 of the 008 payload.
const (
	yearStart = 7
	yearEnd   = 11
)

// Census describes one record file.
type Census struct {
	Path      string `json:"path" yaml:"path"`
	Records   int    `json:"records" yaml:"records"`
	Malformed int    `json:"malformed" yaml:"malformed"`
	Dated     int    `json:"dated" yaml:"dated"`
	Oldest    int    `json:"oldest,omitempty" yaml:"oldest,omitempty"`
	Newest    int    `json:"newest,omitempty" yaml:"newest,omitempty"`
}

// Add folds one record into c.
func (c *Census) Add(rec *types.Record) {
	c.Records++
	year, ok := Year(rec)
	if !ok {
		return
	}
	if c.Dated == 0 || year < c.Oldest {
		c.Oldest = year
	}
	if c.Dated == 0 || year > c.Newest {
		c.Newest = year
	}
	c.Dated++
}

// Year returns the four-digit date one of the first 008 field.
func Year(rec *types.Record) (int, bool) {
	fields := rec.FieldsByTag(types.TagFixedData)
	if len(fields) == 0 {
		return 0, false
	}
	data := fields[0].Data()
	if len(data) < yearEnd {
		return 0, false
	}
	s := data[yearStart:yearEnd]
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return year, true
}

// Take reads src to the end. Malformed records are logged and counted;
// a stream error stops the census and is returned with the partial result.
func Take(ctx context.Context, src marc.Source, log *zap.Logger) (Census, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var c Census
	for {
		select {
		case <-ctx.Done():
			return c, ctx.Err()
		default:
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return c, nil
		}
		var re *marc.RecordError
		if errors.As(err, &re) {
			c.Malformed++
			log.Warn("census: skipping malformed record", zap.Int("index", re.Index), zap.String("leader", re.Leader), zap.Error(re.Err))
			continue
		}
		if err != nil {
			return c, fmt.Errorf("reading records: %w", err)
		}
		c.Add(rec)
	}
}

// File runs a census over the record file at path.
func File(ctx context.Context, path string, log *zap.Logger) (Census, error) {
	f, err := marc.Open(path)
	if err != nil {
		return Census{Path: path}, err
	}
	defer f.Close()

	c, err := Take(ctx, f, log)
	c.Path = path
	if err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
