// Package main is the entry point for the rewatch binary: an agent
// that keeps a resumable watch over a Kubernetes resource collection,
// riding out stream drops and expired watch history.
//
// Dependencies are assembled via Google Wire; see wire.go.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kubeflux/rewatch/internal/agent"
	"github.com/kubeflux/rewatch/internal/cmd"
	"github.com/kubeflux/rewatch/internal/config"
)

// version is injected at build time via -ldflags
// (e.g. -ldflags "-X main.version=v1.2.3").
var version = "devel"

func main() {
	// Cancel on SIGINT (Ctrl+C) or SIGTERM (container runtime).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// Cobra is configured with SilenceErrors: true, so we
		// print the error here for consistent formatting.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires all dependencies and executes the root Cobra command.
func run(ctx context.Context) error {
	rootCmd, cleanup, err := wireCmd()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	return rootCmd.ExecuteContext(ctx)
}

// newCmd is a Wire provider that constructs the root Cobra command and
// registers the watch subcommand.
func newCmd(conf *config.Config) (*cobra.Command, error) {
	c := &cobra.Command{
		Use:           "rewatch",
		Short:         "Rewatch: a resumable watch agent for Kubernetes resource collections.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(conf)
		},
	}

	watchCmd, err := cmd.NewWatchCommand(conf, func() (*agent.Agent, func(), error) {
		return wireAgent(conf)
	})
	if err != nil {
		return nil, err
	}

	c.AddCommand(watchCmd)

	return c, nil
}

// setupLogging installs the default slog handler, honoring the debug
// toggle.
func setupLogging(conf *config.Config) {
	level := slog.LevelInfo
	if conf.AgentDebugEnabled() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
