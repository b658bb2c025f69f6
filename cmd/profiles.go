// file: cmd/profiles.go
// version: 1.0.0
// guid: 329bf6bb-e8fb-4580-b74e-ddd6ec3bd1c8

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/database"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage quality profiles and custom formats",
}

var profilesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import profiles and custom formats from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runProfilesImport(cmd.OutOrStdout(), a.store, args[0])
	},
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quality profiles with their format scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runProfilesList(cmd.OutOrStdout(), a.store, asJSON)
	},
}

func init() {
	profilesListCmd.Flags().Bool("json", false, "print JSON")

	profilesCmd.AddCommand(profilesImportCmd)
	profilesCmd.AddCommand(profilesListCmd)
}

func runProfilesImport(out io.Writer, store database.Store, path string) error {
	seed, err := config.LoadSeedFile(path)
	if err != nil {
		return err
	}
	result, err := config.ImportSeed(store, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d profiles, %d custom formats, %d scores\n", result.Profiles, result.Formats, result.Scores)
	return nil
}

func runProfilesList(out io.Writer, store database.Store, asJSON bool) error {
	profiles, err := store.ListProfiles()
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(out, profiles)
	}
	if len(profiles) == 0 {
		fmt.Fprintln(out, "No profiles. Use `profiles import` to add some.")
		return nil
	}

	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		var allowed []string
		for _, it := range p.Items {
			if it.Allowed {
				allowed = append(allowed, it.Name)
			}
		}
		cutoff := "-"
		if it, ok := p.Item(p.Cutoff); ok {
			cutoff = it.Name
		}
		formats, err := store.GetProfileFormats(p.ID)
		if err != nil {
			return err
		}
		scored := make([]string, 0, len(formats))
		for _, f := range formats {
			scored = append(scored, fmt.Sprintf("%s(%+d)", f.Format.Name, f.Score))
		}
		rows = append(rows, []string{
			strconv.Itoa(p.ID), p.Name, string(p.MediaType), cutoff,
			strings.Join(allowed, ","), strings.Join(scored, " "),
		})
	}
	return printTable(out, []string{"ID", "Name", "Media", "Cutoff", "Allowed", "Formats"}, rows)
}
