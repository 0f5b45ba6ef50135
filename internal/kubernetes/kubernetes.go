// Package kubernetes adapts the core watch contracts to a real
// cluster through the dynamic client.
package kubernetes

import (
	"fmt"
	"log/slog"
	"os"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kubeflux/rewatch/internal/config"
)

type Kubernetes struct {
	client dynamic.Interface
}

func New(conf *config.Config) (*Kubernetes, error) {
	cfg, err := restConfig(conf.AgentKubeconfig())
	if err != nil {
		return nil, err
	}

	client, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return &Kubernetes{client: client}, nil
}

// restConfig prefers in-cluster service account credentials and falls
// back to a kubeconfig file for local development. An explicitly
// configured kubeconfig path skips the in-cluster attempt.
func restConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		} else {
			slog.Warn("in-cluster config not available, falling back to kubeconfig", "error", err)
		}

		kubeconfig = os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			home, _ := os.UserHomeDir()
			if home != "" {
				kubeconfig = home + "/.kube/config"
			}
		}
	}

	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build kube config: %w", err)
	}
	return cfg, nil
}
