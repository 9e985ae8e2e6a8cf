// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marcsplit/internal/config"
	"github.com/pdiddy/marcsplit/pkg/types"
)

// addProfileFlags registers the flags shared by commands that route records.
func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().String("profile", config.Basic, "built-in profile name or path to a profile YAML file")
	cmd.Flags().String("fallback", "", "destination for records that match no rule")
}

// addOutputFlags registers the flags that place destination files.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("out", ".", "directory destination files are written to")
	cmd.Flags().String("prefix", "", "file name prefix, e.g. ucla gives ucla_B.mrc")
}

// loadProfile resolves --profile and applies profile overrides from flags
// and configuration.
func loadProfile(cmd *cobra.Command) (types.Profile, error) {
	p, err := config.Resolve(setting(cmd.Flags(), "profile", "profile"))
	if err != nil {
		return types.Profile{}, err
	}
	if fb := setting(cmd.Flags(), "fallback", "fallback"); fb != "" {
		p.Fallback = fb
	}
	if d := setting(cmd.Flags(), "delimiter", "delimiter"); d != "" {
		p.Delimiter = d
	}
	if m := setting(cmd.Flags(), "absent", "absent_marker"); m != "" {
		p.AbsentMarker = m
	}
	if err := config.Validate(p); err != nil {
		return types.Profile{}, err
	}
	return p, nil
}

// outputConfig collects the destination file settings.
func outputConfig(cmd *cobra.Command) (types.OutputConfig, error) {
	out := types.OutputConfig{
		Dir:     setting(cmd.Flags(), "out", "output.dir"),
		Prefix:  setting(cmd.Flags(), "prefix", "output.prefix"),
		Records: types.RecordFormat(setting(cmd.Flags(), "format", "output.records")),
		Table:   types.TableFormat(setting(cmd.Flags(), "table", "output.table")),
	}
	if sep := setting(cmd.Flags(), "separator", "output.separator"); sep != "" {
		r, size := utf8.DecodeRuneInString(sep)
		if size != len(sep) || r == utf8.RuneError {
			return out, fmt.Errorf("separator must be a single character, got %q", sep)
		}
		out.Separator = r
	}
	return out, nil
}
