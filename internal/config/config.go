package config

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/Stavily/06-Plugins/pluginapi"
	"github.com/spf13/viper"
)

const Name = "config"

var Paths []string = []string{
	"/etc/stavily",
	"$HOME/.stavily",
	".",
}

var (
	ErrBindEnv         = errors.New("failed to bind env")
	ErrReadConfig      = errors.New("failed to read config")
	ErrUnmarshalConfig = errors.New("failed to unmarshal config")
)

var envs = map[string][]string{
	"demo_mode": {pluginapi.DemoModeEnv},
	"log.level": {"STAVILY_LOG_LEVEL"},
}

// PluginTransports and PluginKinds are the accepted definition values.
var (
	PluginTransports = []string{"exec", "builtin"}
	PluginKinds      = []string{string(pluginapi.CapabilityTrigger), string(pluginapi.CapabilityAction)}
)

// Route binds trigger events to an action plugin. Match is a path-style
// glob over the event type; Parameters are merged over the event data when
// building the action request.
type Route struct {
	Match      string                 `mapstructure:"match"`
	Plugin     string                 `mapstructure:"plugin"`
	Parameters map[string]interface{} `mapstructure:"parameters"`
}

// Timeouts are the per-operation-class deadlines the host applies to
// plugin calls.
type Timeouts struct {
	Lifecycle time.Duration `mapstructure:"lifecycle"`
	Detect    time.Duration `mapstructure:"detect"`
	Execute   time.Duration `mapstructure:"execute"`
}

type Config struct {
	Plugins        map[string]pluginapi.PluginDefinition `mapstructure:"plugins"`
	Routes         []Route                               `mapstructure:"routes"`
	Timeouts       Timeouts                              `mapstructure:"timeouts"`
	PollInterval   time.Duration                         `mapstructure:"poll_interval"`
	HealthInterval time.Duration                         `mapstructure:"health_interval"`
	DemoMode       bool                                  `mapstructure:"demo_mode"`
	Log            struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func Load() (*Config, error) {
	viper.SetConfigName(Name)
	for _, path := range Paths {
		viper.AddConfigPath(path)
	}
	viper.AutomaticEnv()

	for envName, keys := range envs {
		binding := []string{envName}
		binding = append(binding, keys...)

		if err := viper.BindEnv(binding...); err != nil {
			return nil, errors.Join(ErrBindEnv, err)
		}
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Join(ErrReadConfig, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Join(ErrUnmarshalConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("poll_interval", 30*time.Second)
	viper.SetDefault("health_interval", 60*time.Second)
	viper.SetDefault("timeouts.lifecycle", 5*time.Second)
	viper.SetDefault("timeouts.detect", 10*time.Second)
	viper.SetDefault("timeouts.execute", 30*time.Second)
	viper.SetDefault("demo_mode", true)
	viper.SetDefault("log.level", "info")
}

func validateConfig(cfg *Config) error {
	for name, def := range cfg.Plugins {
		if !contains(PluginTransports, def.Type) {
			return fmt.Errorf("plugin %s: unsupported type %q", name, def.Type)
		}
		if !contains(PluginKinds, def.Kind) {
			return fmt.Errorf("plugin %s: unsupported kind %q", name, def.Kind)
		}
	}

	for i, route := range cfg.Routes {
		if route.Match == "" {
			return fmt.Errorf("route %d: match pattern is required", i)
		}
		if _, err := path.Match(route.Match, ""); err != nil {
			return fmt.Errorf("route %d: invalid match pattern %q", i, route.Match)
		}
		def, ok := cfg.Plugins[route.Plugin]
		if !ok {
			return fmt.Errorf("route %d: unknown plugin %q", i, route.Plugin)
		}
		if def.Kind != string(pluginapi.CapabilityAction) {
			return fmt.Errorf("route %d: plugin %q is not an action plugin", i, route.Plugin)
		}
	}

	if cfg.Timeouts.Lifecycle <= 0 || cfg.Timeouts.Detect <= 0 || cfg.Timeouts.Execute <= 0 {
		return errors.New("timeouts must be positive")
	}
	if cfg.PollInterval <= 0 || cfg.HealthInterval <= 0 {
		return errors.New("intervals must be positive")
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
