package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pacemangg/aatracker/internal/banner"
	"github.com/pacemangg/aatracker/internal/config"
	"github.com/pacemangg/aatracker/internal/logger"
	"github.com/pacemangg/aatracker/internal/loop"
	"github.com/pacemangg/aatracker/internal/reporter"
	"github.com/pacemangg/aatracker/internal/tracker"
)

type runOptions struct {
	SkipLocks bool
	DryRun    bool
	Once      bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	var options runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Track runs until interrupted (default command)",
		Example: `  # Track with the default config
  aatracker run

  # Build payloads without sending anything
  aatracker run --dry-run --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTracker(cmd, global, options)
		},
	}

	cmd.Flags().BoolVar(&options.SkipLocks, "skip-locks", false, "do not take the single instance lock")
	cmd.Flags().BoolVar(&options.DryRun, "dry-run", false, "build run updates but never send them")
	cmd.Flags().BoolVar(&options.Once, "once", false, "run a single tick and exit")
	return cmd
}

func runTracker(cmd *cobra.Command, global *globalOptions, options runOptions) error {
	cfg, home, err := global.loadConfig()
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeLog()

	if !options.SkipLocks {
		lock, err := tracker.AcquireLock(cfg.LockPath)
		if err != nil {
			return err
		}
		defer func() { _ = lock.Release() }()
	}

	ctx := cmd.Context()
	store, err := config.LoadOptions(cfg.OptionsPath, config.MigrationCandidates(home), getSecrets(ctx), log)
	if err != nil {
		return err
	}
	if store.Get().AccessKey == "" {
		log.Warn("No access key set, nothing will be tracked until one is", logger.F("hint", "aatracker key set <key>"))
	}

	fs := getFileSystem(ctx)
	registry := prometheus.NewRegistry()
	trk := tracker.New(tracker.Deps{
		Fs:      fs,
		Log:     log,
		Options: store,
		Sender:  getSender(ctx, cfg.GetHTTPTimeout()),
		Endpoints: reporter.Endpoints{
			Send: cfg.Endpoints.Send,
			Kill: cfg.Endpoints.Kill,
			Test: cfg.Endpoints.Test,
		},
		PointerPath: cfg.LatestWorldPath,
		Version:     trackerVersion(),
		Embedded:    cfg.IsEmbedded(),
		DryRun:      cfg.DryRun || options.DryRun,
		Metrics:     tracker.NewMetrics(registry),
	})
	snapshots := tracker.NewSnapshotWriter(fs, cfg.StatusPath)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	runner := loop.NewRunner(trk, log, loop.Options{
		Interval:  cfg.GetInterval(),
		StopGrace: cfg.GetStopGrace(),
		Embedded:  cfg.IsEmbedded(),
		OnCrash:   func(error) { shutdown() },
		AfterTick: func() {
			if _, err := snapshots.Write(trk.Snapshot()); err != nil {
				log.Warn("Failed to write status", logger.F("error", err))
			}
		},
	})

	if options.Once {
		return runner.RunOnce(ctx)
	}

	startupBanner(cmd).Print(banner.Info{
		Version:      versionLine(),
		WorldPointer: cfg.LatestWorldPath,
		Embedded:     cfg.IsEmbedded(),
		DryRun:       cfg.DryRun || options.DryRun,
		HasKey:       store.Get().AccessKey != "",
	})
	log.Info("PaceMan AA Tracker started", logger.F("version", trackerVersion()), logger.F("world_pointer", cfg.LatestWorldPath))

	watcher, err := config.NewOptionsWatcher(store)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := watcher.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		for ev := range watcher.Events() {
			if ev.Error != nil {
				log.Warn("Failed to reload options", logger.F("error", ev.Error))
				continue
			}
			log.Info("Options reloaded", logger.F("path", ev.Path), logger.F("enabled_for_plugin", ev.Options.EnabledForPlugin))
		}
		return nil
	})

	g.Go(func() error {
		return runner.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		runner.Stop()
		return watcher.Stop()
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			log.Info("Serving metrics", logger.F("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.Info("PaceMan AA Tracker stopped")
	return err
}

// startupBanner is colored only when writing to the terminal.
func startupBanner(cmd *cobra.Command) *banner.Banner {
	if out := cmd.OutOrStdout(); out != os.Stdout {
		return banner.NewWithWriter(out)
	}
	return banner.New()
}
