// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/marcsplit/pkg/types"
)

func TestBuiltinsValidate(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := Builtin(name)
			require.NoError(t, err)
			assert.Equal(t, name, p.Name)
			assert.NoError(t, Validate(p))
		})
	}
	assert.Equal(t, []string{Basic, Extended}, Names())
}

func TestBuiltinReturnsCopy(t *testing.T) {
	p, err := Builtin(Extended)
	require.NoError(t, err)
	p.Destinations[0].Label = "changed"
	p.Split.Parent = "changed"

	again, err := Builtin(Extended)
	require.NoError(t, err)
	assert.Equal(t, "1945", again.Destinations[0].Label)
	assert.Equal(t, "CLE", again.Split.Parent)
}

func TestBuiltinUnknown(t *testing.T) {
	_, err := Builtin("nope")
	assert.ErrorIs(t, err, ErrUnknownProfile)
	_, err = Resolve("nope")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	p, err := Builtin(Extended)
	require.NoError(t, err)
	p.Fallback = "OTHER"
	p.AbsentMarker = "NA"

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, Write(path, p))

	got, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestLoadDefaultsDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	doc := `name: small
destinations:
  - label: RET
    code: RET
fields:
  - column: figures
    tag: "600"
    subfield: a
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ";", p.Delimiter)
	assert.Equal(t, []types.DestinationRule{{Label: "RET", Code: "RET"}}, p.Destinations)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("destinations: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("destinations:\n  - label: X\n"), 0o644))
	_, err = Load(invalid)
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestValidate(t *testing.T) {
	base := func() types.Profile {
		p, _ := Builtin(Extended)
		return p
	}

	tests := []struct {
		name   string
		mutate func(*types.Profile)
	}{
		{"no destinations", func(p *types.Profile) { p.Destinations = nil }},
		{"duplicate label", func(p *types.Profile) { p.Destinations[1].Label = "1945" }},
		{"rule with both shapes", func(p *types.Profile) { p.Destinations[1].Codes = []string{"X"} }},
		{"split parent missing", func(p *types.Profile) { p.Split.Parent = "NOPE" }},
		{"bucket collides", func(p *types.Profile) { p.Split.Buckets[0].Label = "RET" }},
		{"fallback collides", func(p *types.Profile) { p.Fallback = "CLE-II" }},
		{"bad gate", func(p *types.Profile) { p.Gate.Contains = "" }},
		{"bad field spec", func(p *types.Profile) { p.Fields[0].Tag = "24" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			assert.ErrorIs(t, Validate(p), ErrInvalidProfile)
		})
	}
}
