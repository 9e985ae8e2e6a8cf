// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/marcsplit/pkg/types"
)

// Errors describing an identifier occurrence that could not be parsed.
var (
	ErrNoSourcePrefix = errors.New("no closing parenthesis after source prefix")
	ErrEmptySuffix    = errors.New("empty identifier suffix")
	ErrSplitConfig    = errors.New("invalid split configuration")
)

// ParseError reports one identifier occurrence that contributed no bucket.
// It never stops evaluation of the record's other occurrences.
type ParseError struct {
	Tag        string
	Occurrence int
	Value      string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s[%d] %q: %v", e.Tag, e.Occurrence, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Suffix returns the text following the first ')' of an identifier such as
// "(OCoLC)1234567". The parenthesised source prefix is discarded.
func Suffix(value string) (string, error) {
	i := strings.IndexByte(value, ')')
	if i < 0 {
		return "", ErrNoSourcePrefix
	}
	suffix := value[i+1:]
	if suffix == "" {
		return "", ErrEmptySuffix
	}
	return suffix, nil
}

// Splitter refines one destination into buckets.
type Splitter struct {
	cfg types.SplitConfig
}

// NewSplitter validates cfg. It returns nil, nil when cfg is nil.
func NewSplitter(cfg *types.SplitConfig) (*Splitter, error) {
	if cfg == nil {
		return nil, nil
	}
	c := *cfg
	if c.Tag == "" {
		c.Tag = types.TagSystemNumber
	}
	if c.Parent == "" {
		return nil, fmt.Errorf("%w: parent label is empty", ErrSplitConfig)
	}
	if len(c.Buckets) == 0 {
		return nil, fmt.Errorf("%w: no buckets for %s", ErrSplitConfig, c.Parent)
	}
	for _, b := range c.Buckets {
		if b.Label == "" || b.Prefix == "" {
			return nil, fmt.Errorf("%w: bucket needs label and prefix", ErrSplitConfig)
		}
		if c.ZeroPadded && len(b.Padded) != 3 {
			return nil, fmt.Errorf("%w: bucket %s needs a three-character padded form", ErrSplitConfig, b.Label)
		}
	}
	return &Splitter{cfg: c}, nil
}

// Parent returns the label being split.
func (s *Splitter) Parent() string {
	return s.cfg.Parent
}

// Buckets returns the bucket labels in configuration order.
func (s *Splitter) Buckets() []string {
	out := make([]string, len(s.cfg.Buckets))
	for i, b := range s.cfg.Buckets {
		out[i] = b.Label
	}
	return out
}

// Split evaluates every identifier occurrence on rec independently and
// returns the matched buckets in configuration order. Occurrences that
// cannot be parsed are reported as *ParseError values.
func (s *Splitter) Split(rec *types.Record) (Labels, []error) {
	matched := make([]bool, len(s.cfg.Buckets))
	var errs []error
	for i, f := range rec.FieldsByTag(s.cfg.Tag) {
		value := f.Data()
		suffix, err := Suffix(value)
		if err != nil {
			errs = append(errs, &ParseError{Tag: s.cfg.Tag, Occurrence: i, Value: value, Err: err})
			continue
		}
		for j, b := range s.cfg.Buckets {
			if s.matches(b, suffix) {
				matched[j] = true
			}
		}
	}

	var out Labels
	for j, b := range s.cfg.Buckets {
		if matched[j] {
			out = append(out, b.Label)
		}
	}
	return out, errs
}

func (s *Splitter) matches(b types.SplitBucket, suffix string) bool {
	if strings.HasPrefix(suffix, b.Prefix) {
		return true
	}
	return s.cfg.ZeroPadded && len(suffix) >= 3 && suffix[:3] == b.Padded
}

// Apply replaces the parent label in labels with the record's buckets. The
// parent is kept only when configured. Labels without the parent pass
// through untouched.
func (s *Splitter) Apply(labels Labels, rec *types.Record) (Labels, []error) {
	if s == nil || !labels.Contains(s.cfg.Parent) {
		return labels, nil
	}
	buckets, errs := s.Split(rec)

	out := make(Labels, 0, len(labels)+len(buckets))
	for _, l := range labels {
		if l != s.cfg.Parent {
			out = append(out, l)
			continue
		}
		if s.cfg.KeepParent {
			out = append(out, l)
		}
		out = append(out, buckets...)
	}
	return out, errs
}
