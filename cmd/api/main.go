package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/kassaio/kassa/internal/app"
	"github.com/kassaio/kassa/internal/version"
	"github.com/kassaio/kassa/internal/worker"
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

	// workers stop when the server does
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wk := worker.New(&worker.Worker{
		KafkaStream:     application.Kafka,
		Ctx:             ctx,
		Helper:          application.Helper,
		Mailer:          application.Mailer,
		UserRepo:        application.DB.User(),
		WalletRepo:      application.DB.Wallet(),
		TransactionRepo: application.DB.Transaction(),
		DealRepo:        application.DB.Deal(),
		FinanceRepo:     application.DB.Finance(),
		ActivityRepo:    application.DB.Activity(),
	})

	go wk.DepositAlertWorker()
	go wk.OverdueEscalationWorker()

	return application.ServeHTTP()
}
