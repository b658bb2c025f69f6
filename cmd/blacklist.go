// file: cmd/blacklist.go
// version: 1.0.0
// guid: a41c4c00-1154-4839-8569-45705cc85ea7

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdfalk/media-acquirer/internal/models"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Inspect and manage blacklisted releases",
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklist entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		asJSON, _ := cmd.Flags().GetBool("json")
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runBlacklistList(cmd.Context(), cmd.OutOrStdout(), a, all, asJSON)
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove <source> <release-id>",
	Short: "Remove one blacklist entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("yes")
		key := models.ReleaseKey{Source: args[0], ReleaseID: args[1]}
		if !force {
			confirmed, err := promptYesNo(cmd.InOrStdin(), cmd.OutOrStdout(), "Remove "+key.String())
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted. Nothing removed.")
				return nil
			}
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.governor.Remove(cmd.Context(), key); err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", key)
		return nil
	},
}

var blacklistSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired blacklist entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		n, err := a.governor.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", n)
		return nil
	},
}

func init() {
	blacklistListCmd.Flags().Bool("all", false, "include expired entries")
	blacklistListCmd.Flags().Bool("json", false, "print JSON")
	blacklistRemoveCmd.Flags().Bool("yes", false, "skip confirmation prompt")

	blacklistCmd.AddCommand(blacklistListCmd)
	blacklistCmd.AddCommand(blacklistRemoveCmd)
	blacklistCmd.AddCommand(blacklistSweepCmd)
}

func runBlacklistList(ctx context.Context, out io.Writer, a *app, all, asJSON bool) error {
	entries, err := a.governor.List(ctx, all)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "Blacklist is empty.")
		return nil
	}

	now := time.Now()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		expires := e.ExpiresAt.Format(time.RFC3339)
		if !e.Live(now) {
			expires += " (expired)"
		}
		rows = append(rows, []string{
			e.Key().String(),
			fmt.Sprintf("%s %d", e.Media.Kind(), e.Media.ID()),
			string(e.FailureType),
			expires,
			truncateString(e.Reason, 60),
		})
	}
	return printTable(out, []string{"Release", "Media", "Type", "Expires", "Reason"}, rows)
}
