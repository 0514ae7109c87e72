package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/gfx/uirender"
	"github.com/hubastard/overlay/engine/platform"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Fixed-function GUI overlay demo",
	Long: `sandbox opens a window, draws a small host scene with the selected
graphics device and renders a GUI overlay on top of it.

Keys: F1 toggles the overlay, Ctrl+P dumps a profile (profile builds),
Escape quits.`,
	Version:       uirender.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags(), cfgFile)
		if err != nil {
			return err
		}
		setupLogging(cfg.Verbose)
		return run(cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is ./sandbox.yaml)")
	registerFlags(rootCmd.Flags())
}

func registerFlags(f *pflag.FlagSet) {
	f.String("backend", defaultBackend, `graphics device: "gl" or "d3d9" (windows only)`)
	f.Int("width", 1280, "window width")
	f.Int("height", 720, "window height")
	f.Bool("vsync", true, "wait for vertical blank")
	f.Float32("font-size", 16, "overlay font size in pixels")
	f.String("font", "", "TTF file for the overlay (default is Go Regular)")
	f.String("image", "", "PNG or BMP shown in the overlay")
	f.Int("vertex-slack", uirender.DefaultVertexSlack, "extra vertices reserved on buffer growth")
	f.Int("index-slack", uirender.DefaultIndexSlack, "extra indices reserved on buffer growth")
	f.Bool("validate", false, "check draw list indices every frame")
	f.BoolP("verbose", "v", false, "debug logging")
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	uirender.SetLogger(log.With("component", "uirender"))
}

func run(cfg sandboxConfig) error {
	app := &App{cfg: cfg}

	newWindow := func(c core.Config) (core.Window, error) {
		return platform.NewGLFWWindow(c)
	}
	return core.Run(app, cfg.Core(), newWindow, newHost)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sandbox:", err)
		os.Exit(1)
	}
}
