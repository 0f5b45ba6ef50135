// Package cmd provides the Cobra command constructors. Commands
// receive their dependencies through injector functions so that the
// Wire-assembled graph is only built when a command actually runs.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubeflux/rewatch/internal/agent"
	"github.com/kubeflux/rewatch/internal/config"
)

type AgentInjector func() (*agent.Agent, func(), error)

// NewWatchCommand returns the command that runs the watch agent: a
// resumable watch over one resource collection, with the resume
// position carried across reconnects and restarts.
func NewWatchCommand(conf *config.Config, newAgent AgentInjector) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Watch a resource collection and keep a resumable event stream",
		Example: "rewatch watch --group=apps --resource=deployments --namespace=prod --state-file=/var/lib/rewatch/state.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := newAgent()
			if err != nil {
				return fmt.Errorf("failed to initialize agent: %w", err)
			}
			defer cleanup()

			return a.Run(cmd.Context())
		},
	}

	if err := conf.BindFlags(cmd.Flags(), config.WatchOptions); err != nil {
		return nil, err
	}
	if err := conf.BindFlags(cmd.Flags(), config.AgentOptions); err != nil {
		return nil, err
	}

	return cmd, nil
}
