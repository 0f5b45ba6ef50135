//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/spf13/cobra"

	"github.com/kubeflux/rewatch/internal/agent"
	"github.com/kubeflux/rewatch/internal/config"
	"github.com/kubeflux/rewatch/internal/kubernetes"
	"github.com/kubeflux/rewatch/internal/observe"
)

func wireCmd() (*cobra.Command, func(), error) {
	panic(wire.Build(
		newCmd,
		config.ProviderSet,
	))
}

func wireAgent(conf *config.Config) (*agent.Agent, func(), error) {
	panic(wire.Build(
		agent.ProviderSet,
		kubernetes.ProviderSet,
		observe.ProviderSet,
	))
}
