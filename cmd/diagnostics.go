// file: cmd/diagnostics.go
// version: 2.0.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/pebble/v2"
	"github.com/spf13/cobra"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/database"
)

var (
	diagnosticsCmd = &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging helpers",
		Long:  "Diagnostic utilities for inspecting the acquisition database.",
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Inspect stored download jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			raw, _ := cmd.Flags().GetBool("raw")
			return runDiagnosticsQuery(cmd.OutOrStdout(), limit, prefix, raw)
		},
	}
)

func init() {
	queryCmd.Flags().Int("limit", 5, "Number of records to display")
	queryCmd.Flags().String("prefix", "job:", "Key prefix to inspect when --raw is set")
	queryCmd.Flags().Bool("raw", false, "Show raw Pebble key/value data (Pebble only)")

	diagnosticsCmd.AddCommand(queryCmd)
}

func runDiagnosticsQuery(out io.Writer, limit int, prefix string, raw bool) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	if raw {
		if config.AppConfig.DatabaseType != "pebble" {
			return fmt.Errorf("raw inspection is only available for Pebble databases")
		}
		return runRawPebbleQuery(out, limit, prefix)
	}

	store, err := database.Open(config.AppConfig.DatabaseType, config.AppConfig.DatabasePath, config.AppConfig.EnableSQLite)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	jobs, err := store.ListJobs(false)
	if err != nil {
		return fmt.Errorf("failed to fetch jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found.")
		return nil
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	for i, job := range jobs {
		fmt.Fprintf(out, "%2d. ID: %s\n", i+1, job.ID)
		fmt.Fprintf(out, "    Title: %s\n", job.Title)
		fmt.Fprintf(out, "    Release: %s on %s (handle %s)\n", job.ReleaseKey(), job.Backend, job.Handle)
		fmt.Fprintf(out, "    Status: %s %.1f%%\n", job.Status, job.Progress*100)
		if job.ErrorMessage != "" {
			fmt.Fprintf(out, "    Error: %s\n", job.ErrorMessage)
		}
		fmt.Fprintln(out, "---")
	}

	return nil
}

func runRawPebbleQuery(out io.Writer, limit int, prefix string) error {
	db, err := pebble.Open(config.AppConfig.DatabasePath, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return fmt.Errorf("failed to open Pebble database: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	for ok := iter.First(); ok && iter.Valid(); ok = iter.Next() {
		fmt.Fprintf(out, "Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Fprintf(out, "Value length: %d bytes\n", len(val))
		fmt.Fprintf(out, "Value preview: %s\n", truncateString(string(val), 500))
		fmt.Fprintln(out, "---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(out, "No keys matched the requested prefix.")
	}

	return nil
}

func promptYesNo(in io.Reader, out io.Writer, action string) (bool, error) {
	fmt.Fprintf(out, "%s? Type 'yes' to confirm: ", action)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}
