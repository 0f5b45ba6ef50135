package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	v *viper.Viper
}

func New() (*Config, error) {
	v := viper.New()

	// default values
	for _, o := range WatchOptions {
		v.SetDefault(o.Key, o.Default)
	}

	for _, o := range AgentOptions {
		v.SetDefault(o.Key, o.Default)
	}

	// load config from file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/rewatch/")

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !(errors.As(err, &notFoundErr) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// load config from environment variables
	v.SetEnvPrefix("REWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{v: v}, nil
}

func (c *Config) BindFlags(fs *pflag.FlagSet, options []Option) error {
	for _, o := range options {
		switch v := o.Default.(type) {
		case string:
			fs.String(o.Flag, v, o.Description)
		case int:
			fs.Int(o.Flag, v, o.Description)
		case bool:
			fs.Bool(o.Flag, v, o.Description)
		case []string:
			fs.StringSlice(o.Flag, v, o.Description)
		case time.Duration:
			fs.Duration(o.Flag, v, o.Description)
		default:
			return fmt.Errorf("unsupported flag type for key: %s", o.Key)
		}

		if err := c.v.BindPFlag(o.Key, fs.Lookup(o.Flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", o.Flag, err)
		}
	}

	return nil
}

func (c *Config) WatchGroup() string {
	return c.v.GetString(keyWatchGroup) // REWATCH_WATCH_GROUP
}

func (c *Config) WatchVersion() string {
	return c.v.GetString(keyWatchVersion) // REWATCH_WATCH_VERSION
}

func (c *Config) WatchResource() string {
	return c.v.GetString(keyWatchResource) // REWATCH_WATCH_RESOURCE
}

func (c *Config) WatchNamespace() string {
	return c.v.GetString(keyWatchNamespace) // REWATCH_WATCH_NAMESPACE
}

func (c *Config) WatchLabelSelector() string {
	return c.v.GetString(keyWatchLabelSelector) // REWATCH_WATCH_LABEL_SELECTOR
}

func (c *Config) WatchFieldSelector() string {
	return c.v.GetString(keyWatchFieldSelector) // REWATCH_WATCH_FIELD_SELECTOR
}

func (c *Config) WatchBookmarks() bool {
	return c.v.GetBool(keyWatchBookmarks) // REWATCH_WATCH_BOOKMARKS
}

func (c *Config) WatchBackoff() time.Duration {
	return c.v.GetDuration(keyWatchBackoff) // REWATCH_WATCH_BACKOFF
}

func (c *Config) WatchStateFile() string {
	return c.v.GetString(keyWatchStateFile) // REWATCH_WATCH_STATE_FILE
}

func (c *Config) AgentMetricsAddress() string {
	return c.v.GetString(keyAgentMetricsAddress) // REWATCH_AGENT_METRICS_ADDRESS
}

func (c *Config) AgentKubeconfig() string {
	return c.v.GetString(keyAgentKubeconfig) // REWATCH_AGENT_KUBECONFIG
}

func (c *Config) AgentDebugEnabled() bool {
	return c.v.GetBool(keyAgentDebugEnabled) // REWATCH_AGENT_DEBUG_ENABLED
}
