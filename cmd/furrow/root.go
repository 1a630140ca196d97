package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/config"
	"github.com/aretw0/furrow/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "furrow",
	Short: "Furrow routes farmers' questions to specialist agents",
	Long: `Furrow is a supervisor for an agricultural assistant. It splits compound
questions, routes each part to a weather, market, knowledge, image,
fertilizer or video worker, and merges the answers.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to furrow.yaml (default: ./furrow.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Override log format (text, json)")
}

// app is everything a command needs to talk to the supervisor.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	supervisor *furrow.Supervisor
	assembly   *config.Assembly
}

func (a *app) Close() {
	if err := a.assembly.Close(); err != nil {
		a.logger.Warn("close failed", "err", err)
	}
}

// loadConfig reads the config and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	logger := logging.NewWithFormat(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	return cfg, logger, nil
}

// newApp loads the config and builds a supervisor from it.
func newApp(cmd *cobra.Command, extra ...furrow.Option) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return buildApp(cfg, logger, extra...)
}

// buildApp builds a supervisor from an already loaded config. Extra options
// go last so they win over configured ones.
func buildApp(cfg *config.Config, logger *slog.Logger, extra ...furrow.Option) (*app, error) {
	asm, err := config.Build(cfg, logger)
	if err != nil {
		return nil, err
	}
	sup, err := furrow.New(append(asm.Options, extra...)...)
	if err != nil {
		_ = asm.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, supervisor: sup, assembly: asm}, nil
}
