package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hubastard/overlay/engine/colors"
	"github.com/hubastard/overlay/engine/core"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// sandboxConfig is the merged flag, environment and file configuration.
type sandboxConfig struct {
	Backend     string  `mapstructure:"backend"`
	Width       int     `mapstructure:"width"`
	Height      int     `mapstructure:"height"`
	VSync       bool    `mapstructure:"vsync"`
	FontSize    float32 `mapstructure:"font-size"`
	Font        string  `mapstructure:"font"`
	Image       string  `mapstructure:"image"`
	VertexSlack int     `mapstructure:"vertex-slack"`
	IndexSlack  int     `mapstructure:"index-slack"`
	Validate    bool    `mapstructure:"validate"`
	Verbose     bool    `mapstructure:"verbose"`
}

// loadConfig resolves settings with flags over OVERLAY_* environment
// variables over the config file over flag defaults.
func loadConfig(flags *pflag.FlagSet, cfgFile string) (sandboxConfig, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return sandboxConfig{}, fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix("OVERLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("sandbox")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return sandboxConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg sandboxConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return sandboxConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c sandboxConfig) validate() error {
	switch c.Backend {
	case "gl", "d3d9":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Width, c.Height)
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("invalid font size %g", c.FontSize)
	}
	if c.VertexSlack < 0 || c.IndexSlack < 0 {
		return errors.New("buffer slack must not be negative")
	}
	return nil
}

// Core returns the window and host settings.
func (c sandboxConfig) Core() core.Config {
	return core.Config{
		Title:      "Overlay Sandbox (" + c.Backend + ")",
		Width:      c.Width,
		Height:     c.Height,
		VSync:      c.VSync,
		ClearColor: colors.DarkGray,
		Backend:    c.Backend,
	}
}
