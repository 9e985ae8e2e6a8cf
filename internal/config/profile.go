// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config provides routing and extraction profiles: the built-in
// basic and extended profiles, YAML profile files, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/marcsplit/internal/classify"
	"github.com/pdiddy/marcsplit/internal/extract"
	"github.com/pdiddy/marcsplit/pkg/types"
)

var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrInvalidProfile = errors.New("invalid profile")
)

// Built-in profile names.
const (
	Basic    = "basic"
	Extended = "extended"
)

// DefaultFields are the extraction columns of the built-in profiles. The
// year is taken from positions 13..17 of the rendered 008 field, which are
// the date-one positions 7..11 of the payload.
func DefaultFields() []types.FieldSpec {
	return []types.FieldSpec{
		{Column: "title", Tag: "245", Subfield: "a", Trim: " /"},
		{Column: "author", Tag: "100", Subfield: "a", Trim: " ,"},
		{Column: "author code", Tag: "100", Subfield: "7", Placeholder: true},
		{Column: "year", Tag: types.TagFixedData, TextRange: []int{13, 17}, Numeric: true},
		{Column: "figures", Tag: "600", Subfield: "a", Trim: " ,"},
		{Column: "description", Tag: "650", Subfield: "a"},
		{Column: "genre", Tag: "655", Subfield: "a"},
		{Column: "magazine", Tag: "773", Subfield: "t"},
	}
}

var builtins = map[string]func() types.Profile{
	Basic: func() types.Profile {
		return types.Profile{
			Name: Basic,
			Destinations: []types.DestinationRule{
				{Label: "B", Codes: []string{"B12", "B45", "B97", "B70", "B80"}},
				{Label: "RET", Code: "RET"},
				{Label: "SMZ", Code: "SMZ"},
				{Label: "INT", Code: "INT"},
				{Label: "CLE", Code: "CLE"},
				{Label: "TRL", Code: "TRL"},
			},
			Fields:    DefaultFields(),
			Delimiter: extract.DefaultDelimiter,
		}
	},
	Extended: func() types.Profile {
		return types.Profile{
			Name: Extended,
			Gate: &types.GateConfig{Tag: types.TagCollection, Contains: "CLB-CPK"},
			Destinations: []types.DestinationRule{
				{Label: "1945", Codes: []string{"B12", "B45", "B70", "B80", "B97", "CLE", "SMZ", "INT"}},
				{Label: "ALKARO", Code: "ALKARO"},
				{Label: "RET", Code: "RET"},
				{Label: "SMZ", Code: "SMZ"},
				{Label: "INT", Code: "INT"},
				{Label: "TRL", Code: "TRL"},
				{Label: "CLE", Code: "CLE"},
			},
			Split: &types.SplitConfig{
				Parent: "CLE",
				Tag:    types.TagSystemNumber,
				Buckets: []types.SplitBucket{
					{Label: "CLE-I", Prefix: "1", Padded: "001"},
					{Label: "CLE-II", Prefix: "2", Padded: "002"},
				},
			},
			Fields:    DefaultFields(),
			Delimiter: extract.DefaultDelimiter,
		}
	},
}

// Names returns the built-in profile names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of the named built-in profile.
func Builtin(name string) (types.Profile, error) {
	mk, ok := builtins[name]
	if !ok {
		return types.Profile{}, fmt.Errorf("%w: %q (built-ins: %s)", ErrUnknownProfile, name, strings.Join(Names(), ", "))
	}
	return mk(), nil
}

// Resolve returns the built-in profile called ref, or loads ref as a YAML
// file when it names an existing path.
func Resolve(ref string) (types.Profile, error) {
	if _, ok := builtins[ref]; ok {
		return Builtin(ref)
	}
	if _, err := os.Stat(ref); err == nil {
		return Load(ref)
	}
	return Builtin(ref)
}

// Load reads and validates a YAML profile file.
func Load(path string) (types.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Profile{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	var p types.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return types.Profile{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if p.Delimiter == "" {
		p.Delimiter = extract.DefaultDelimiter
	}
	if err := Validate(p); err != nil {
		return types.Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Write saves p as YAML.
func Write(path string, p types.Profile) error {
	data, err := yaml.Marshal(&p)
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the rules, split and field specs of p can be built
// and that no two output destinations share a label.
func Validate(p types.Profile) error {
	var errs []error

	if _, err := classify.NewRuleset(p.Destinations); err != nil {
		errs = append(errs, err)
	}
	if len(p.Destinations) == 0 {
		errs = append(errs, errors.New("no destinations"))
	}
	if p.Gate != nil && (len(p.Gate.Tag) != 3 || p.Gate.Contains == "") {
		errs = append(errs, fmt.Errorf("gate needs a 3-character tag and a marker, got %q/%q", p.Gate.Tag, p.Gate.Contains))
	}

	labels := make(map[string]bool, len(p.Destinations))
	for _, d := range p.Destinations {
		labels[d.Label] = true
	}
	if _, err := classify.NewSplitter(p.Split); err != nil {
		errs = append(errs, err)
	} else if p.Split != nil {
		if !labels[p.Split.Parent] {
			errs = append(errs, fmt.Errorf("split parent %q is not a destination", p.Split.Parent))
		}
		for _, b := range p.Split.Buckets {
			if labels[b.Label] {
				errs = append(errs, fmt.Errorf("split bucket %q collides with a destination", b.Label))
			}
			labels[b.Label] = true
		}
	}
	if p.Fallback != "" && labels[p.Fallback] {
		errs = append(errs, fmt.Errorf("fallback %q collides with a destination", p.Fallback))
	}

	if len(p.Fields) > 0 {
		if _, err := extract.New(p.Fields); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	return nil
}
