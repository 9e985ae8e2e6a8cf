// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marcsplit/internal/census"
)

var censusCmd = &cobra.Command{
	Use:   "census <file>...",
	Short: "Count the records and year span of record files",
	Long: `Census reads each record file (.mrc or .xml) and reports how many records it
holds and the oldest and newest publication year found in 008 positions
7-10. Run it over the output of divide to compare destinations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCensus,
}

func init() {
	rootCmd.AddCommand(censusCmd)
}

func runCensus(cmd *cobra.Command, args []string) error {
	var (
		rows   [][]string
		failed int
	)
	for _, path := range args {
		c, err := census.File(context.Background(), path, logger)
		if err != nil {
			fmt.Printf("failed  %s: %v\n", path, err)
			failed++
			continue
		}
		rows = append(rows, []string{
			c.Path,
			strconv.Itoa(c.Records),
			strconv.Itoa(c.Malformed),
			yearCell(c.Dated, c.Oldest),
			yearCell(c.Dated, c.Newest),
		})
	}

	if len(rows) > 0 {
		fmt.Println(renderTable(
			[]string{"File", "Records", "Malformed", "Oldest", "Newest"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be read", failed)
	}
	return nil
}

func yearCell(dated, year int) string {
	if dated == 0 {
		return "-"
	}
	return strconv.Itoa(year)
}
