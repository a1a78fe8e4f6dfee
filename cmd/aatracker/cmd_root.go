package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pacemangg/aatracker/internal/config"
	"github.com/pacemangg/aatracker/internal/logger"
)

type globalOptions struct {
	ConfigPath string
	Home       string
	LogLevel   string
}

// home resolves --home, falling back to the user's home directory.
func (o *globalOptions) home() (string, error) {
	if o.Home != "" {
		return o.Home, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return h, nil
}

func (o *globalOptions) loadConfig() (*config.Config, string, error) {
	home, err := o.home()
	if err != nil {
		return nil, "", err
	}
	loader := config.NewLoader(home)
	path := o.ConfigPath
	if path == "" {
		path = loader.DefaultPath()
	}
	cfg, err := loader.Load(path)
	if err != nil {
		return nil, "", err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	return cfg, home, nil
}

// newLogger writes to out and, when configured, a rotated log file. Repeated
// debug lines are collapsed.
func newLogger(cfg *config.Config, out io.Writer) (logger.Logger, func(), error) {
	level := logger.ParseLevel(cfg.Log.Level)
	sinks := []logger.Logger{logger.NewWriterLogger(out, level)}
	closeFn := func() {}

	if cfg.Log.File != "" {
		file, err := logger.NewFileLogger(cfg.Log.File, level)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, file)
		closeFn = func() { _ = file.Close() }
	}

	return logger.NewCollapsingLogger(logger.NewMultiLogger(sinks...)), closeFn, nil
}

func NewRootCmd() *cobra.Command {
	options := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "aatracker",
		Short: "Report All Advancements runs to PaceMan.gg",
		Long: `aatracker watches SpeedRunIGT's latest world and reports the progress of
legal All Advancements runs to PaceMan.gg.

Set your access key once with 'aatracker key set <key>', then start tracking
with 'aatracker run'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       trackerVersion(),
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&options.ConfigPath, "config", "", "path to config file (default ~/.PaceMan/AA/config.yaml)")
	cmd.PersistentFlags().StringVar(&options.Home, "home", "", "home directory holding speedrunigt/ and .PaceMan/")
	cmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", "", "log level: debug, info, warn or error")

	run := newRunCmd(options)
	cmd.RunE = run.RunE
	cmd.Flags().AddFlagSet(run.Flags())

	cmd.AddCommand(run)
	cmd.AddCommand(newCheckCmd(options))
	cmd.AddCommand(newStatusCmd(options))
	cmd.AddCommand(newKeyCmd(options))
	cmd.AddCommand(newVersionCmd())
	return cmd
}
