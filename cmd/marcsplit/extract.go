// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marcsplit/internal/marc"
	"github.com/pdiddy/marcsplit/internal/pipeline"
	"github.com/pdiddy/marcsplit/internal/sink"
	"github.com/pdiddy/marcsplit/internal/tally"
	"github.com/pdiddy/marcsplit/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <input>",
	Short: "Extract profile columns into one table per destination",
	Long: `Extract classifies records like divide, but writes one row per record with
the columns declared by the profile (title, author, author code, year,
figures, description, genre, magazine for the built-ins) to a CSV file or
SQLite database per destination. Repeated fields are joined with the
profile delimiter. A record whose structure prevents building its row is
logged and left out; the rest of the stream continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	addProfileFlags(extractCmd)
	addOutputFlags(extractCmd)
	extractCmd.Flags().String("table", "csv", "table format: csv or sqlite")
	extractCmd.Flags().String("separator", "", "CSV field separator (default ,)")
	extractCmd.Flags().String("delimiter", "", "joins repeated values within a cell (default from profile)")
	extractCmd.Flags().String("absent", "", "text written for absent values")
	extractCmd.Flags().String("tally", "", "also write a value frequency report to this .yaml or .json file")
	extractCmd.Flags().Int("top", 20, "values kept per column in the tally report")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	if len(p.Fields) == 0 {
		return fmt.Errorf("profile %s declares no fields to extract", p.Name)
	}
	out, err := outputConfig(cmd)
	if err != nil {
		return err
	}
	tallyPath, _ := cmd.Flags().GetString("tally")
	top, _ := cmd.Flags().GetInt("top")
	if tallyPath != "" {
		if err := checkReportPath(tallyPath); err != nil {
			return err
		}
	}

	src, err := marc.Open(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	columns := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		columns[i] = f.Column
	}
	rows, err := sink.OpenRows(out, pipeline.Labels(p), columns, sink.Flat{Delimiter: p.Delimiter, AbsentMarker: p.AbsentMarker}, logger)
	if err != nil {
		return err
	}

	opts := pipeline.Options{Log: logger, Rows: rows}
	if tallyPath != "" {
		opts.Tally = tally.New(tallyColumns(p), yearColumn(p))
	}
	pl, err := pipeline.New(p, opts)
	if err != nil {
		rows.Close()
		return err
	}

	summary, runErr := pl.Run(context.Background(), src)
	if err := pl.Close(); err != nil && runErr == nil {
		runErr = err
	}

	ext := "csv"
	if out.Table == types.TableSQLite {
		ext = "db"
	}
	fmt.Println(statsTable(summary.Tables, func(label string) string {
		return sink.Path(out, label, ext)
	}))
	summary.Print(os.Stdout)

	if opts.Tally != nil && runErr == nil {
		if err := exportReport(opts.Tally.Report(top), tallyPath); err != nil {
			return err
		}
		fmt.Printf("Tally written to %s\n", tallyPath)
	}

	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d record(s) malformed, %d row(s) discarded, %d write(s) failed",
			summary.Malformed, summary.Discarded, summary.WriteErrors)
	}
	return nil
}

func checkReportPath(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return nil
	}
	return fmt.Errorf("tally report must be .yaml or .json, got %s", path)
}

// exportReport chooses the encoding from the file extension.
func exportReport(r tally.Report, path string) error {
	if err := checkReportPath(path); err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return r.ExportJSON(path)
	}
	return r.ExportYAML(path)
}

// tallyColumns picks the subject heading columns of p, those fed by the
// 600, 650 and 655 fields.
func tallyColumns(p types.Profile) []string {
	var cols []string
	for _, f := range p.Fields {
		switch f.Tag {
		case "600", "650", "655":
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// yearColumn returns the first column taken from the 008 field.
func yearColumn(p types.Profile) string {
	for _, f := range p.Fields {
		if f.Tag == types.TagFixedData {
			return f.Column
		}
	}
	return ""
}
