// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/marcsplit/internal/config"
	"github.com/pdiddy/marcsplit/internal/pipeline"
	"github.com/pdiddy/marcsplit/pkg/types"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "List, show, export and check routing profiles",
	Long: `Profile works with the routing profiles divide, extract and tally use.
The built-ins are basic (B, RET, SMZ, INT, CLE, TRL) and extended (1945,
ALKARO, RET, SMZ, INT, TRL and CLE split into CLE-I and CLE-II, limited to
records whose 599 contains CLB-CPK). Export a built-in to start a custom
profile and pass its path to --profile.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in profiles and their destinations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var rows [][]string
		for _, name := range config.Names() {
			p, err := config.Builtin(name)
			if err != nil {
				return err
			}
			rows = append(rows, []string{name, strings.Join(pipeline.Labels(p), " "), strconv.Itoa(len(p.Fields))})
		}
		fmt.Println(renderTable([]string{"Profile", "Destinations", "Columns"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name|path>",
	Short: "Print a profile as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Resolve(args[0])
		if err != nil {
			return err
		}
		return printProfile(p)
	},
}

var profileExportCmd = &cobra.Command{
	Use:   "export <name> <path>",
	Short: "Write a profile to a YAML file for editing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Resolve(args[0])
		if err != nil {
			return err
		}
		if err := config.Write(args[1], p); err != nil {
			return err
		}
		fmt.Printf("Profile %s written to %s\n", p.Name, args[1])
		return nil
	},
}

var profileCheckCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Validate a profile file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Profile %s is valid: %d destination(s), %d column(s)\n",
			p.Name, len(pipeline.Labels(p)), len(p.Fields))
		return nil
	},
}

func printProfile(p types.Profile) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(&p); err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return enc.Close()
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileExportCmd, profileCheckCmd)
	rootCmd.AddCommand(profileCmd)
}
