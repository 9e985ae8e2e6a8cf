// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline reads records from a source and, one record at a time,
// gates, classifies, splits and routes them, optionally extracting a row for
// the tabular sinks and a corpus tally.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/marcsplit/internal/classify"
	"github.com/pdiddy/marcsplit/internal/extract"
	"github.com/pdiddy/marcsplit/internal/marc"
	"github.com/pdiddy/marcsplit/internal/route"
	"github.com/pdiddy/marcsplit/internal/tally"
	"github.com/pdiddy/marcsplit/pkg/types"
)

// Options wires the outputs of a Pipeline. Every field is optional; a
// Pipeline with no routers only classifies and counts.
type Options struct {
	Log     *zap.Logger
	Records *route.Router[*types.Record]
	Rows    *route.Router[types.Row]
	Tally   *tally.Tally
}

// Pipeline owns the routers it was given and closes them in Close.
type Pipeline struct {
	log       *zap.Logger
	gate      *classify.Gate
	rules     classify.Ruleset
	split     *classify.Splitter
	extractor *extract.Extractor
	fallback  string

	records *route.Router[*types.Record]
	rows    *route.Router[types.Row]
	tally   *tally.Tally

	summary Summary
}

// New builds a Pipeline for profile p. A row router or tally requires p to
// declare field specs.
func New(p types.Profile, opts Options) (*Pipeline, error) {
	rules, err := classify.NewRuleset(p.Destinations)
	if err != nil {
		return nil, err
	}
	split, err := classify.NewSplitter(p.Split)
	if err != nil {
		return nil, err
	}

	pl := &Pipeline{
		log:      opts.Log,
		gate:     classify.NewGate(p.Gate),
		rules:    rules,
		split:    split,
		fallback: p.Fallback,
		records:  opts.Records,
		rows:     opts.Rows,
		tally:    opts.Tally,
	}
	if pl.log == nil {
		pl.log = zap.NewNop()
	}
	if opts.Rows != nil || opts.Tally != nil {
		if len(p.Fields) == 0 {
			return nil, errors.New("row output needs field specs")
		}
		if pl.extractor, err = extract.New(p.Fields); err != nil {
			return nil, err
		}
	}
	return pl, nil
}

// Labels returns every destination a record can be routed to under p:
// the rule labels in order with a split parent replaced by its buckets
// (or followed by them with KeepParent), then the fallback.
func Labels(p types.Profile) []string {
	var out []string
	for _, d := range p.Destinations {
		if p.Split == nil || d.Label != p.Split.Parent {
			out = append(out, d.Label)
			continue
		}
		if p.Split.KeepParent {
			out = append(out, d.Label)
		}
		for _, b := range p.Split.Buckets {
			out = append(out, b.Label)
		}
	}
	if p.Fallback != "" {
		out = append(out, p.Fallback)
	}
	return out
}

// Run consumes src until io.EOF. Malformed records are logged and skipped;
// a stream error or cancellation ends the run and is returned alongside the
// counts so far. Run does not close the routers; call Close.
func (p *Pipeline) Run(ctx context.Context, src marc.Source) (Summary, error) {
	for {
		select {
		case <-ctx.Done():
			return p.Summary(), ctx.Err()
		default:
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return p.Summary(), nil
		}
		var re *marc.RecordError
		if errors.As(err, &re) {
			p.summary.Malformed++
			p.log.Warn("pipeline: skipping malformed record",
				zap.Int("index", re.Index),
				zap.String("leader", re.Leader),
				zap.Error(re.Err),
			)
			continue
		}
		if err != nil {
			return p.Summary(), fmt.Errorf("reading records: %w", err)
		}
		p.Process(rec)
	}
}

// Process runs one record through the gate, classifier, splitter and
// routers. It never fails; every error is local to the record and is logged
// and counted.
func (p *Pipeline) Process(rec *types.Record) {
	p.summary.Read++
	if !p.gate.Admit(rec) {
		p.summary.Filtered++
		return
	}

	labels := classify.Classify(rec, p.rules)
	labels, parseErrs := p.split.Apply(labels, rec)
	for _, err := range parseErrs {
		p.summary.ParseErrors++
		p.log.Warn("pipeline: skipping identifier",
			zap.String("record", rec.ControlNumber()),
			zap.Error(err),
		)
	}
	if len(labels) == 0 {
		p.summary.Unmatched++
		p.log.Debug("pipeline: record matched no destination", zap.String("record", rec.ControlNumber()))
		if p.fallback == "" {
			return
		}
		labels = classify.Labels{p.fallback}
	}
	p.summary.Routed++

	if p.records != nil {
		stripped := rec.Stripped()
		p.summary.WriteErrors += len(p.records.Route(labels, stripped))
	}

	if p.extractor == nil {
		return
	}
	row, err := p.extractor.Extract(rec)
	if err != nil {
		p.summary.Discarded++
		var re *extract.RecordError
		if errors.As(err, &re) {
			p.log.Warn("pipeline: discarding row",
				zap.String("record", re.Source),
				zap.String("leader", re.Leader),
				zap.String("column", re.Column),
				zap.String("field", re.Field),
				zap.Error(re.Err),
			)
		} else {
			p.log.Warn("pipeline: discarding row", zap.String("record", rec.ControlNumber()), zap.Error(err))
		}
		return
	}
	p.summary.Rows++
	if p.rows != nil {
		p.summary.WriteErrors += len(p.rows.Route(labels, row))
	}
	if p.tally != nil {
		p.tally.Observe(row)
	}
}

// Summary returns the counts so far, including per-destination write counts.
func (p *Pipeline) Summary() Summary {
	s := p.summary
	if p.records != nil {
		s.Records = p.records.Stats()
	}
	if p.rows != nil {
		s.Tables = p.rows.Stats()
	}
	return s
}

// Close closes both routers, reporting every failure.
func (p *Pipeline) Close() error {
	var errs []error
	if p.records != nil {
		errs = append(errs, p.records.Close())
	}
	if p.rows != nil {
		errs = append(errs, p.rows.Close())
	}
	return errors.Join(errs...)
}
