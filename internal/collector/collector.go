package collector

import (
	"context"
	"fmt"

	"cryptoetl/config"
	"cryptoetl/internal/memorystore"
	"cryptoetl/internal/metrics"
	"cryptoetl/internal/notify"
	"cryptoetl/internal/pipeline"
	"cryptoetl/internal/threshold"
	"cryptoetl/pkg/cryptocompare"
	"cryptoetl/pkg/storage/lake"
	"cryptoetl/pkg/storage/postgres"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Collector owns the clients a pipeline needs and closes them on Close.
type Collector struct {
	Pipeline *pipeline.Pipeline
	closers  []func() error
	logger   *zap.Logger
}

func (c *Collector) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn("failed to close client", zap.Error(err))
		}
	}
}

// awsLoader loads the SDK config once, on first use.
type awsLoader struct {
	cfg    config.AWSConfig
	loaded *aws.Config
}

func (l *awsLoader) get(ctx context.Context) (aws.Config, error) {
	if l.loaded != nil {
		return *l.loaded, nil
	}
	c, err := config.LoadAWS(ctx, l.cfg)
	if err != nil {
		return aws.Config{}, err
	}
	l.loaded = &c
	return c, nil
}

// New wires the fetcher, lake sink, threshold source and notifier selected
// by cfg into a pipeline.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Collector, error) {
	c := &Collector{logger: logger}
	awsCfg := &awsLoader{cfg: cfg.AWS}

	fetcher := cryptocompare.NewRESTClient(cfg.PriceAPI.BaseURL, cfg.PriceAPI.APIKey, cfg.PriceAPI.Timeout, logger)

	writer, err := c.newWriter(ctx, cfg, awsCfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	gate, err := c.newGate(ctx, cfg, awsCfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Pipeline = pipeline.New(pipeline.Options{
		Fetcher:      fetcher,
		Writer:       writer,
		Gate:         gate,
		Symbols:      cfg.PriceAPI.Symbols,
		Quotes:       cfg.PriceAPI.Quotes,
		FetchTimeout: cfg.PriceAPI.Timeout,
		WriteTimeout: cfg.Lake.Timeout,
		Logger:       logger,
		Metrics:      m,
	})

	logger.Info("pipeline ready",
		zap.Strings("symbols", cfg.PriceAPI.Symbols),
		zap.Strings("quotes", cfg.PriceAPI.Quotes),
		zap.String("sink", cfg.Lake.Sink),
		zap.String("threshold_source", cfg.Threshold.Source))
	return c, nil
}

func (c *Collector) newWriter(ctx context.Context, cfg *config.Config, awsCfg *awsLoader) (pipeline.LakeWriter, error) {
	switch cfg.Lake.Sink {
	case "s3":
		ac, err := awsCfg.get(ctx)
		if err != nil {
			return nil, err
		}
		return lake.NewWriter(s3.NewFromConfig(ac), glue.NewFromConfig(ac),
			cfg.Lake.Bucket, cfg.Lake.Prefix, cfg.Lake.Database, cfg.Lake.Table, c.logger), nil

	case "postgres":
		pgCfg := cfg.Postgres
		if pgCfg.PasswordParameter != "" {
			ac, err := awsCfg.get(ctx)
			if err != nil {
				return nil, err
			}
			pw, err := config.NewSSMProvider(ssm.NewFromConfig(ac), true).Secret(ctx, pgCfg.PasswordParameter)
			if err != nil {
				return nil, fmt.Errorf("resolve postgres password: %w", err)
			}
			pgCfg.Password = pw
		}
		client, err := postgres.InitializeAndMigratePriceRecord(pgCfg, cfg.Lake.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		return client, nil

	case "memory":
		return memorystore.NewRecordStore(), nil
	}
	return nil, fmt.Errorf("unknown lake sink %q", cfg.Lake.Sink)
}

func (c *Collector) newGate(ctx context.Context, cfg *config.Config, awsCfg *awsLoader) (*pipeline.Gate, error) {
	var source threshold.Source
	switch cfg.Threshold.Source {
	case "none":
		return nil, nil
	case "static":
		source = threshold.Static{Value: cfg.Threshold.Default}
	case "dynamodb":
		ac, err := awsCfg.get(ctx)
		if err != nil {
			return nil, err
		}
		source = threshold.NewDynamoStore(dynamodb.NewFromConfig(ac), cfg.Threshold.DynamoDB.Table)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Threshold.Redis.Addr,
			Password: cfg.Threshold.Redis.Password,
			DB:       cfg.Threshold.Redis.DB,
		})
		c.closers = append(c.closers, rdb.Close)
		source = threshold.NewRedisStore(rdb, cfg.Threshold.Redis.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown threshold source %q", cfg.Threshold.Source)
	}

	var secrets config.SecretProvider = config.NewEnvProvider()
	if cfg.Notify.SecretSource == "ssm" {
		ac, err := awsCfg.get(ctx)
		if err != nil {
			return nil, err
		}
		secrets = config.NewSSMProvider(ssm.NewFromConfig(ac), true)
	}

	return &pipeline.Gate{
		Source: source,
		Notifier: notify.NewSlackNotifier(secrets, cfg.Notify.SecretName,
			cfg.Notify.Username, cfg.Notify.IconEmoji, cfg.Notify.Timeout, c.logger),
		Asset:   cfg.Threshold.Asset,
		Quote:   cfg.Threshold.Quote,
		Timeout: cfg.Threshold.Timeout,
	}, nil
}
