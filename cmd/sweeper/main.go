// The sweeper runs the overdue scan on a schedule, for deployments without a
// platform scheduler hitting /cron. Both paths share the same scanner and the
// same redis lock, so running both at once is safe.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kassaio/kassa/internal/app"
	"github.com/kassaio/kassa/internal/scan"
	"github.com/kassaio/kassa/internal/version"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")
	runOnce := flag.Bool("run-once", false, "run one overdue sweep and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	application, err := app.NewApplication(logger)
	if err != nil {
		return err
	}
	defer application.DB.Close()

	sweep := func() (*scan.Result, error) {
		return application.Scanner.Run(time.Now())
	}

	if *runOnce {
		result, err := sweep()
		if err != nil {
			return err
		}
		logSweepResult(logger, result)
		application.WG.Wait()
		return nil
	}

	scheduler := cron.New()

	_, err = scheduler.AddFunc(application.Config.Cron.OverdueSpec, func() {
		result, err := sweep()
		if err != nil {
			logger.Error("overdue sweep failed", "error", err)
			return
		}
		logSweepResult(logger, result)
	})
	if err != nil {
		return err
	}

	scheduler.Start()
	logger.Info("sweeper started", "spec", application.Config.Cron.OverdueSpec)

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan

	logger.Info("shutting down sweeper...")
	<-scheduler.Stop().Done()
	application.WG.Wait()
	logger.Info("sweeper stopped")
	return nil
}

func logSweepResult(logger *slog.Logger, result *scan.Result) {
	if result.AlreadyRunning {
		logger.Info("overdue sweep skipped, another run holds the lock")
		return
	}

	logger.Info("overdue sweep completed",
		"overdue_payments", len(result.OverduePayments),
		"notifications_sent", result.NotificationsSent,
		"notifications_failed", result.NotificationsFailed)
}
