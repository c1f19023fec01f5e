package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/toparuz/marketsync/internal/config"
	"github.com/toparuz/marketsync/internal/server"
	"github.com/toparuz/marketsync/pkg/errors"
	"github.com/toparuz/marketsync/pkg/scheduler"
)

// Build metadata, set via -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Execute runs the marketsync CLI.
func Execute() error {
	root := &cobra.Command{
		Use:           "marketsync",
		Short:         "Reconcile a POS catalog against marketplace listings",
		Long:          "marketsync fetches the Billz POS catalog and marketplace listings,\nmatches them by barcode and SKU, and pushes quantity and price updates\nback to the marketplaces.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(runCmd())
	root.AddCommand(daemonCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())
	return root.Execute()
}

// runCmd executes one cycle per configured pairing and exits.
func runCmd() *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation cycle per pairing and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			var failed int
			for _, p := range a.Pairings {
				if only != "" && p.Name != only {
					continue
				}
				if _, err := p.RunCycle(ctx); err != nil {
					a.Logger.Error().Err(err).Str("pairing", p.Name).Msg("Cycle failed")
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d pairing(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "pairing", "", "run only the named pairing")
	return cmd
}

// daemonCmd runs the scheduler loops and the inspection server until
// interrupted.
func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run continuous reconciliation on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			state := server.NewState()
			sched := scheduler.New(a.schedulerPairings(state)...)
			sched.Start(ctx)

			var srv *server.Server
			if a.Config.Server.Enabled {
				srv = server.New(a.Config.Server.Addr, state, a.storeReader(), a.trigger(sched))
				go func() {
					if err := srv.Start(ctx); err != nil {
						a.Logger.Error().Err(err).Msg("Inspection server failed")
					}
				}()
			}

			<-ctx.Done()
			a.Logger.Info().Msg("Shutting down")

			sched.Stop()
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.Logger.Warn().Err(err).Msg("Server shutdown failed")
				}
			}
			return nil
		},
	}
}

// serveCmd runs only the inspection server, for reading run history while
// the daemon runs elsewhere.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the inspection server without the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			srv := server.New(a.Config.Server.Addr, server.NewState(), a.storeReader(), nil)
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.Logger.Warn().Err(err).Msg("Server shutdown failed")
				}
			}()
			return srv.Start(ctx)
		},
	}
}

// configCmd prints the effective configuration with credentials masked.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out, err := cfg.Redacted()
			if err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("marketsync %s (commit %s, built %s)\n", Version, Commit, Date)
		},
	}
}

// schedulerPairings wraps each sync pairing as a scheduler pairing that
// publishes its summary for inspection.
func (a *App) schedulerPairings(state *server.State) []scheduler.Pairing {
	pairings := make([]scheduler.Pairing, 0, len(a.Pairings))
	for _, p := range a.Pairings {
		p := p
		pairings = append(pairings, scheduler.Pairing{
			Name:    p.Name,
			Delay:   a.Config.Sync.Delay,
			Timeout: a.Config.Sync.Timeout,
			Run: func(ctx context.Context) error {
				sum, err := p.RunCycle(ctx)
				if sum != nil {
					state.Publish(sum)
				}
				return err
			},
		})
	}
	return pairings
}

// storeReader exposes the store's read surface, or nil when persistence is
// disabled.
func (a *App) storeReader() server.StoreReader {
	if a.Store == nil {
		return nil
	}
	return a.Store
}

// trigger adapts the scheduler's RunNow into the server's trigger hook. The
// cycle runs detached; the HTTP request only verifies the pairing exists.
func (a *App) trigger(sched *scheduler.Scheduler) server.Trigger {
	known := make(map[string]bool, len(a.Pairings))
	for _, p := range a.Pairings {
		known[p.Name] = true
	}
	return func(ctx context.Context, pairing string) error {
		if !known[pairing] {
			return errors.ErrNotFound
		}
		go sched.RunNow(context.WithoutCancel(ctx), pairing)
		return nil
	}
}
