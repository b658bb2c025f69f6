// file: cmd/backend.go
// version: 1.0.0
// guid: 904293ea-8de1-452e-adea-4e69de30b804

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/download"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Talk to configured download backends",
}

var backendListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackendList(cmd.OutOrStdout(), config.AppConfig.Backends)
	},
}

var backendTestCmd = &cobra.Command{
	Use:   "test [name]...",
	Short: "Check connectivity and credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runBackendTest(cmd.Context(), cmd.OutOrStdout(), a.backends, args)
	},
}

var backendJobsCmd = &cobra.Command{
	Use:   "jobs <name>",
	Short: "Show the jobs a backend currently holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runBackendJobs(cmd.Context(), cmd.OutOrStdout(), a.backends, args[0])
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Refresh tracked jobs from their backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if watch {
			err := a.orch.Run(cmd.Context(), config.AppConfig.PollInterval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		return runPoll(cmd.Context(), cmd.OutOrStdout(), a)
	},
}

func init() {
	pollCmd.Flags().Bool("watch", false, "keep polling every poll_interval until interrupted")

	backendCmd.AddCommand(backendListCmd)
	backendCmd.AddCommand(backendTestCmd)
	backendCmd.AddCommand(backendJobsCmd)
}

func runBackendList(out io.Writer, cfgs []config.BackendConfig) error {
	if len(cfgs) == 0 {
		fmt.Fprintln(out, "No backends configured.")
		return nil
	}
	rows := make([][]string, 0, len(cfgs))
	for _, b := range cfgs {
		rows = append(rows, []string{b.Name, b.Kind, b.BaseURL(), b.Category})
	}
	return printTable(out, []string{"Name", "Kind", "URL", "Category"}, rows)
}

// runBackendTest checks every named backend, or all of them when names is
// empty, and fails if any check failed.
func runBackendTest(ctx context.Context, out io.Writer, backends *download.Registry, names []string) error {
	if len(names) == 0 {
		names = backends.Names()
	}
	var errs []error
	for _, name := range names {
		b, ok := backends.Get(name)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown backend %q", name))
			fmt.Fprintf(out, "%-16s unknown\n", name)
			continue
		}
		start := time.Now()
		if err := b.TestConnection(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			fmt.Fprintf(out, "%-16s FAIL  %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "%-16s ok    %s in %s\n", name, b.Kind(), time.Since(start).Round(time.Millisecond))
	}
	return errors.Join(errs...)
}

func runBackendJobs(ctx context.Context, out io.Writer, backends *download.Registry, name string) error {
	b, ok := backends.Get(name)
	if !ok {
		return fmt.Errorf("unknown backend %q", name)
	}
	jobs, err := b.ListJobs(ctx)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintf(out, "%s holds no jobs.\n", name)
		return nil
	}
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			j.Handle, j.Name, string(j.Status),
			fmt.Sprintf("%.1f%%", j.Progress*100), j.ETA.String(),
		})
	}
	return printTable(out, []string{"Handle", "Name", "Status", "Progress", "ETA"}, rows,
		alignLeft, alignLeft, alignLeft, alignRight, alignRight)
}

func runPoll(ctx context.Context, out io.Writer, a *app) error {
	result, err := a.orch.Poll(ctx)
	fmt.Fprintf(out, "Checked %d jobs: %d updated, %d completed, %d failed, %d blacklisted\n",
		result.Checked, result.Updated, result.Completed, result.Failed, result.Blacklisted)
	return err
}
