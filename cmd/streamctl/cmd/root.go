// Package cmd hosts the streamctl demo CLI: a thin harness around the SDK
// for exercising a live avatar stream from a terminal.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vireo-ai/streamkit"
	"github.com/vireo-ai/streamkit/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "streamctl",
	Short: "Drive a live avatar stream from the terminal",
	Long: `streamctl opens a streaming session against an avatar backend,
sends speak requests and prints connection and playback transitions
until interrupted.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default streamkit.yaml, or STREAMKIT_CONFIG)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func authFromConfig(cfg *config.Config) (streamkit.Auth, error) {
	switch {
	case cfg.ClientKey != "":
		return streamkit.ClientKey(cfg.ClientKey), nil
	case cfg.Bearer != "":
		return streamkit.Bearer(cfg.Bearer), nil
	case cfg.BasicUser != "":
		return streamkit.Basic(cfg.BasicUser, cfg.BasicPass), nil
	default:
		return streamkit.Auth{}, fmt.Errorf("no credentials configured: set client_key, bearer_token or basic_user")
	}
}

func streamFromConfig(cfg *config.Config) streamkit.StreamOptions {
	kind := streamkit.KindTalk
	if cfg.Kind == "clip" {
		kind = streamkit.KindClip
	}
	return streamkit.StreamOptions{
		Kind:        kind,
		SourceURL:   cfg.SourceURL,
		PresenterID: cfg.PresenterID,
		DriverID:    cfg.DriverID,
		Warmup:      cfg.Warmup,
	}
}
