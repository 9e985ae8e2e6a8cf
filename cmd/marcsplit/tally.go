// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marcsplit/internal/marc"
	"github.com/pdiddy/marcsplit/internal/pipeline"
	"github.com/pdiddy/marcsplit/internal/tally"
)

var tallyCmd = &cobra.Command{
	Use:   "tally <input>",
	Short: "Report the most frequent subject values of routed records",
	Long: `Tally extracts the profile columns from every record that matches a
destination and counts the values of the subject columns (figures,
description and genre for the built-ins). It prints the most frequent values
per column and, per year, the single most common one. Nothing is written
unless --export names a .yaml or .json report file.`,
	Args: cobra.ExactArgs(1),
	RunE: runTally,
}

func init() {
	addProfileFlags(tallyCmd)
	tallyCmd.Flags().Int("top", 10, "values shown per column")
	tallyCmd.Flags().Bool("by-year", false, "also show the most common value per year")
	tallyCmd.Flags().String("export", "", "write the full report to this .yaml or .json file")

	rootCmd.AddCommand(tallyCmd)
}

func runTally(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	top, _ := cmd.Flags().GetInt("top")
	byYear, _ := cmd.Flags().GetBool("by-year")
	export, _ := cmd.Flags().GetString("export")
	if export != "" {
		if err := checkReportPath(export); err != nil {
			return err
		}
	}

	cols := tallyColumns(p)
	if len(cols) == 0 {
		return fmt.Errorf("profile %s has no subject columns to tally", p.Name)
	}

	src, err := marc.Open(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	tl := tally.New(cols, yearColumn(p))
	pl, err := pipeline.New(p, pipeline.Options{Log: logger, Tally: tl})
	if err != nil {
		return err
	}
	summary, err := pl.Run(context.Background(), src)
	if err != nil {
		return err
	}

	for _, c := range tl.Columns() {
		fmt.Printf("\n%s\n", c)
		var rows [][]string
		for _, n := range tl.Top(c, top) {
			rows = append(rows, []string{n.Value, strconv.Itoa(n.Count)})
		}
		fmt.Println(renderTable([]string{"Value", "Records"}, rows, []columnAlignment{alignLeft, alignRight}))

		if byYear {
			rows = rows[:0]
			for _, y := range tl.MostCommonByYear(c) {
				rows = append(rows, []string{y.Year, y.Value, strconv.Itoa(y.Count)})
			}
			fmt.Println(renderTable([]string{"Year", "Most common", "Records"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
		}
	}
	summary.Print(os.Stdout)

	if export != "" {
		if err := exportReport(tl.Report(0), export); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", export)
	}
	return nil
}
