package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cryptoetl/config"
	"cryptoetl/internal/collector"
	"cryptoetl/internal/metrics"
	"cryptoetl/internal/scheduler"
	"cryptoetl/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments inject the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.Flags(flags)
	_ = flags.Parse(os.Args[1:])

	// viper config
	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// zap logger
	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Addr != "" && cfg.Schedule.Mode != scheduler.ModeOnce {
		m.Serve(ctx, cfg.Metrics.Addr, logger)
	}

	c, err := collector.New(ctx, cfg, logger, m)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}
	defer c.Close()

	runner := &scheduler.Runner{
		Mode:         cfg.Schedule.Mode,
		Cron:         cfg.Schedule.Cron,
		LoopInterval: cfg.Schedule.LoopInterval,
		Logger:       logger,
		Run: func(ctx context.Context) error {
			_, err := c.Pipeline.Run(ctx)
			return err
		},
	}

	if err := runner.Start(ctx); err != nil {
		logger.Error("pipeline failed", zap.Error(err))
		c.Close()
		_ = logger.Sync()
		os.Exit(1)
	}
}
