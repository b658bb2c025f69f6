// file: cmd/serve.go
// version: 1.0.0
// guid: bc7da8d4-d990-49d9-bc2a-875dd988b7eb

package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/logger"
	"github.com/jdfalk/media-acquirer/internal/realtime"
	"github.com/jdfalk/media-acquirer/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the job poller",
	RunE: func(cmd *cobra.Command, args []string) error {
		noPoll, _ := cmd.Flags().GetBool("no-poll")
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runServe(cmd.Context(), a, config.AppConfig, !noPoll)
	},
}

func init() {
	serveCmd.Flags().String("listen", ":8686", "address to listen on")
	serveCmd.Flags().Bool("no-poll", false, "do not poll backends in the background")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

// runServe runs the API and, when poll is set, the poller until ctx is
// cancelled or either of them fails.
func runServe(ctx context.Context, a *app, cfg config.Config, poll bool) error {
	entry := logger.For("serve")
	if n, err := a.governor.Sweep(ctx); err != nil {
		entry.WithError(err).Warn("initial blacklist sweep failed")
	} else if n > 0 {
		entry.WithField("removed", n).Info("expired blacklist entries removed at startup")
	}

	hub := realtime.NewEventHub()
	a.orch.SetNotifier(hub)
	srv := server.NewServer(cfg.Server, server.Deps{
		Store:        a.store,
		Governor:     a.governor,
		Orchestrator: a.orch,
		Backends:     a.backends,
		Events:       hub,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if poll && len(a.backends.Names()) > 0 {
		g.Go(func() error {
			err := a.orch.Run(gctx, cfg.PollInterval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
