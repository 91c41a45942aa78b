package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/mxichain/presale/internal/app"
	"github.com/mxichain/presale/internal/scheduler"
	"github.com/mxichain/presale/internal/seeder"
	"github.com/mxichain/presale/internal/version"
	"github.com/mxichain/presale/internal/worker"
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
	seed := flag.Bool("seed", false, "seed presale stages and exit")
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
	defer application.Cache.Close()

	if *seed {
		seeder.New(application.DB).Run()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wk := worker.New(&worker.Worker{
		KafkaStream: application.Kafka,
		DB:          application.DB,
		Ctx:         ctx,
		Helper:      application.Helper,
		Mailer:      application.Mailer,
		Verifier:    application.Verifier,
	})

	go wk.VerifyPurchaseWorker()
	go wk.ConfirmedPurchaseWorker()
	go wk.FailedPurchaseWorker()

	cronScheduler := scheduler.New(application.DB, application.Kafka, logger)
	if err := cronScheduler.Start(); err != nil {
		return err
	}
	defer cronScheduler.Stop()

	return application.ServeHTTP()
}
