// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marcsplit/internal/marc"
	"github.com/pdiddy/marcsplit/internal/pipeline"
	"github.com/pdiddy/marcsplit/internal/sink"
)

var divideCmd = &cobra.Command{
	Use:   "divide <input>",
	Short: "Write each record to the record file of every destination it matches",
	Long: `Divide streams the records of an ISO 2709 or MARCXML file, classifies each
by its 964 $a codes and appends it, without its LDR and FMT fields, to one
file per matched destination: <out>/<prefix>_<label>.mrc (or .mrk with
--format mrk). A record can land in several files. Malformed records and
failed writes are logged and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runDivide,
}

func init() {
	addProfileFlags(divideCmd)
	addOutputFlags(divideCmd)
	divideCmd.Flags().String("format", "mrc", "record file format: mrc (binary) or mrk (mnemonic text)")

	rootCmd.AddCommand(divideCmd)
}

func runDivide(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	out, err := outputConfig(cmd)
	if err != nil {
		return err
	}

	src, err := marc.Open(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	records, err := sink.OpenRecords(out, pipeline.Labels(p), logger)
	if err != nil {
		return err
	}
	pl, err := pipeline.New(p, pipeline.Options{Log: logger, Records: records})
	if err != nil {
		records.Close()
		return err
	}

	summary, runErr := pl.Run(context.Background(), src)
	if err := pl.Close(); err != nil && runErr == nil {
		runErr = err
	}

	fmt.Println(statsTable(summary.Records, func(label string) string {
		return sink.Path(out, label, string(out.Records))
	}))
	summary.Print(os.Stdout)

	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d record(s) malformed, %d write(s) failed", summary.Malformed, summary.WriteErrors)
	}
	return nil
}
