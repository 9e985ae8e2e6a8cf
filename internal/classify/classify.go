// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify decides which destinations a catalog record belongs to.
// Destinations are matched on the classification codes carried in 964$a;
// one destination may further be split into buckets by parsing the system
// number suffix in 035.
package classify

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pdiddy/marcsplit/pkg/types"
)

// codeSubfield holds the classification code within a 964 field.
const codeSubfield = 'a'

// Sentinel errors for rule construction.
var (
	ErrEmptyLabel     = errors.New("destination label is empty")
	ErrDuplicateLabel = errors.New("duplicate destination label")
	ErrRuleShape      = errors.New("destination needs exactly one of code or codes")
)

// Rule selects a destination by classification code.
type Rule struct {
	Label string
	codes map[string]struct{}
}

// NewRule builds a Rule from its configuration. A literal code is a set of one.
func NewRule(cfg types.DestinationRule) (Rule, error) {
	if cfg.Label == "" {
		return Rule{}, ErrEmptyLabel
	}
	hasSet, hasLiteral := len(cfg.Codes) > 0, cfg.Code != ""
	if hasSet == hasLiteral {
		return Rule{}, fmt.Errorf("%w: %s", ErrRuleShape, cfg.Label)
	}

	codes := cfg.Codes
	if hasLiteral {
		codes = []string{cfg.Code}
	}
	r := Rule{Label: cfg.Label, codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		r.codes[c] = struct{}{}
	}
	return r, nil
}

// Match reports whether code selects the rule's destination.
func (r Rule) Match(code string) bool {
	_, ok := r.codes[code]
	return ok
}

// Ruleset is an ordered list of destination rules. Code sets may overlap.
type Ruleset []Rule

// NewRuleset builds rules in configuration order, rejecting duplicate labels.
func NewRuleset(cfgs []types.DestinationRule) (Ruleset, error) {
	rs := make(Ruleset, 0, len(cfgs))
	seen := make(map[string]bool, len(cfgs))
	for _, cfg := range cfgs {
		r, err := NewRule(cfg)
		if err != nil {
			return nil, err
		}
		if seen[r.Label] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, r.Label)
		}
		seen[r.Label] = true
		rs = append(rs, r)
	}
	return rs, nil
}

// Labels returns the destination labels in rule order.
func (rs Ruleset) Labels() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Label
	}
	return out
}

// Labels is an ordered set of destination labels.
type Labels []string

// Contains reports whether label is in the set.
func (l Labels) Contains(label string) bool {
	return slices.Contains(l, label)
}

func (l Labels) String() string {
	return strings.Join(l, ",")
}

// Classify returns the destinations selected by any 964$a code on rec, in
// rule order and without duplicates. A record with no 964 yields no labels.
func Classify(rec *types.Record, rs Ruleset) Labels {
	matched := make([]bool, len(rs))
	for _, f := range rec.FieldsByTag(types.TagClassification) {
		code, ok := f.Subfield(codeSubfield)
		if !ok {
			continue
		}
		for i, r := range rs {
			if !matched[i] && r.Match(code) {
				matched[i] = true
			}
		}
	}

	var labels Labels
	for i, r := range rs {
		if matched[i] {
			labels = append(labels, r.Label)
		}
	}
	return labels
}

// Gate admits records carrying a field whose data contains a marker. A nil
// Gate admits everything.
type Gate struct {
	tag    string
	marker string
}

// NewGate returns nil when cfg is nil.
func NewGate(cfg *types.GateConfig) *Gate {
	if cfg == nil {
		return nil
	}
	return &Gate{tag: cfg.Tag, marker: cfg.Contains}
}

// Admit reports whether rec passes the gate.
func (g *Gate) Admit(rec *types.Record) bool {
	if g == nil {
		return true
	}
	for _, f := range rec.FieldsByTag(g.tag) {
		if strings.Contains(f.Data(), g.marker) {
			return true
		}
	}
	return false
}
