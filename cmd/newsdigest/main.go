package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsdigest/internal/app"
	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/sources"
)

var flagSlot string

var rootCmd = &cobra.Command{
	Use:           "newsdigest",
	Short:         "Scheduled multi-source news digest with translation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and deliver one digest for a slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.RunOnce(ctx, flagSlot)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Deliver every slot on its schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	},
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List configured slots and their feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		registry, err := sources.LoadOrDefault(cfg.SourcesFile)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, slot := range registry.Slots() {
			fmt.Fprintf(out, "%s\t%s\n", slot, registry.Schedule(slot))
			srcs, _ := registry.Sources(slot)
			for _, s := range srcs {
				fmt.Fprintf(out, "  %s\t%s\n", s.Name, s.Endpoint)
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&flagSlot, "slot", "morning", "slot label to build")
	rootCmd.AddCommand(runCmd, serveCmd, slotsCmd)
}

func withApp(parent context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Close failed", "error", err)
		}
	}()
	return fn(ctx, a)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("newsdigest failed", "error", err)
		os.Exit(1)
	}
}
