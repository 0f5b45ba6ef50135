package config

import (
	"strings"
	"time"
)

// Option describes a single configuration entry: its viper key, the
// corresponding CLI flag name, the compiled default, and a
// human-readable description shown in --help output.
type Option struct {
	Key         string
	Flag        string
	Default     any
	Description string
}

// WatchOptions defines the configuration entries that select the
// watched resource collection and tune the resume policy.
var WatchOptions = []Option{
	{Key: keyWatchGroup, Flag: toFlag(keyWatchGroup), Default: "", Description: "API group of the watched resource (empty for the core group)"},
	{Key: keyWatchVersion, Flag: toFlag(keyWatchVersion), Default: "v1", Description: "API version of the watched resource"},
	{Key: keyWatchResource, Flag: toFlag(keyWatchResource), Default: "pods", Description: "Plural resource name to watch"},
	{Key: keyWatchNamespace, Flag: toFlag(keyWatchNamespace), Default: "", Description: "Namespace to watch (empty for all namespaces)"},
	{Key: keyWatchLabelSelector, Flag: toFlag(keyWatchLabelSelector), Default: "", Description: "Label selector narrowing the watch"},
	{Key: keyWatchFieldSelector, Flag: toFlag(keyWatchFieldSelector), Default: "", Description: "Field selector narrowing the watch"},
	{Key: keyWatchBookmarks, Flag: toFlag(keyWatchBookmarks), Default: false, Description: "Request bookmark events from the server"},
	{Key: keyWatchBackoff, Flag: toFlag(keyWatchBackoff), Default: 10 * time.Second, Description: "Wait before redialing after a failed or desynced watch"},
	{Key: keyWatchStateFile, Flag: toFlag(keyWatchStateFile), Default: "", Description: "File persisting the resume position across restarts (empty to disable)"},
}

// AgentOptions defines the configuration entries for the agent
// runtime.
var AgentOptions = []Option{
	{Key: keyAgentMetricsAddress, Flag: toFlag(keyAgentMetricsAddress), Default: ":9155", Description: "Metrics and health listen address"},
	{Key: keyAgentKubeconfig, Flag: toFlag(keyAgentKubeconfig), Default: "", Description: "Kubeconfig path (empty to prefer in-cluster credentials)"},
	{Key: keyAgentDebugEnabled, Flag: toFlag(keyAgentDebugEnabled), Default: false, Description: "Enable debug logging"},
}

// toFlag converts a viper key like "watch.label_selector" into a CLI
// flag like "label-selector" by lower-casing, replacing dots and
// underscores with hyphens, and stripping the "watch-" or "agent-"
// prefix.
func toFlag(key string) string {
	flag := strings.ToLower(key)
	flag = strings.ReplaceAll(flag, ".", "-")
	flag = strings.ReplaceAll(flag, "_", "-")
	flag = strings.TrimPrefix(flag, "watch-")
	flag = strings.TrimPrefix(flag, "agent-")
	return flag
}
