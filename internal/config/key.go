// Package config provides unified configuration loading from files,
// environment variables, and CLI flags using viper and pflag.
//
// Resolution order (highest wins):
//  1. CLI flags
//  2. Environment variables (prefix REWATCH_)
//  3. Config file (config.yaml in . or /etc/rewatch/)
//  4. Compiled defaults
package config

// Viper keys for the watch target and resume policy.
const (
	keyWatchGroup         = "watch.group"
	keyWatchVersion       = "watch.version"
	keyWatchResource      = "watch.resource"
	keyWatchNamespace     = "watch.namespace"
	keyWatchLabelSelector = "watch.label_selector"
	keyWatchFieldSelector = "watch.field_selector"
	keyWatchBookmarks     = "watch.bookmarks"
	keyWatchBackoff       = "watch.backoff"
	keyWatchStateFile     = "watch.state_file"
)

// Viper keys for the agent runtime.
const (
	keyAgentMetricsAddress = "agent.metrics_address"
	keyAgentKubeconfig     = "agent.kubeconfig"
	keyAgentDebugEnabled   = "agent.debug.enabled"
)
