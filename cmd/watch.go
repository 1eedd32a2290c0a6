package cmd

import (
	"context"
	"dropwatch/internal/daemon"
	"dropwatch/internal/logger"
	"dropwatch/internal/monitor"
	"dropwatch/internal/watcher"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the configured folders and upload new files",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	paths := cfg.WatchPaths()
	if len(paths) == 0 {
		logger.Log.Error("please specify a path")
		return nil
	}

	w, err := watcher.New(logger.Log)
	if err != nil {
		return err
	}

	var mon *monitor.Monitor
	if cfg.Monitor.Process != "" {
		mon = monitor.New(cfg.Monitor.Process, cfg.Monitor.Interval, monitor.NewProcessTable(), logger.Log)
	}

	orch := daemon.NewOrchestrator(daemon.Options{
		Paths:       paths,
		Destination: destination(),
		IgnoreList:  cfg.IgnoreList,
		Workers:     cfg.Workers,
	}, w, newDispatcher(), mon, logger.Log)

	if cfg.DaemonPort > 0 {
		srv := daemon.NewServer(orch, cfg.DaemonPort, logger.Log)
		srv.Start()

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reason, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if reason == daemon.StopCompanionGone {
		logger.Log.Info("companion process exited",
			zap.String("process", cfg.Monitor.Process))
	}

	return nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
