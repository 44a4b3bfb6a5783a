package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	PriceAPI  PriceAPIConfig  `mapstructure:"price_api"`
	Threshold ThresholdConfig `mapstructure:"threshold"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Lake      LakeConfig      `mapstructure:"lake"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Log       LogConfig       `mapstructure:"log"`
}

// PriceAPIConfig describes the multi-symbol price endpoint.
type PriceAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Symbols []string      `mapstructure:"symbols"`
	Quotes  []string      `mapstructure:"quotes"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ThresholdConfig struct {
	Source   string        `mapstructure:"source"` // "none", "static", "dynamodb" or "redis"
	Asset    string        `mapstructure:"asset"`
	Quote    string        `mapstructure:"quote"`
	Default  float64       `mapstructure:"default"`
	Timeout  time.Duration `mapstructure:"timeout"`
	DynamoDB DynamoDBTable `mapstructure:"dynamodb"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

type DynamoDBTable struct {
	Table string `mapstructure:"table"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type NotifyConfig struct {
	SecretSource string        `mapstructure:"secret_source"` // "env" or "ssm"
	SecretName   string        `mapstructure:"secret_name"`
	Username     string        `mapstructure:"username"`
	IconEmoji    string        `mapstructure:"icon_emoji"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// LakeConfig selects the sink the record set is appended to.
type LakeConfig struct {
	Sink     string        `mapstructure:"sink"` // "s3", "postgres" or "memory"
	Bucket   string        `mapstructure:"bucket"`
	Prefix   string        `mapstructure:"prefix"`
	Database string        `mapstructure:"database"`
	Table    string        `mapstructure:"table"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ScheduleConfig struct {
	Mode         string        `mapstructure:"mode"` // "once", "loop" or "cron"
	Cron         string        `mapstructure:"cron"`
	LoopInterval time.Duration `mapstructure:"loop_interval"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// setDefaults registers every key in Config. AutomaticEnv only resolves keys
// viper already knows, so a key without a default ignores its env var.
func setDefaults(v *viper.Viper) {
	v.SetDefault("price_api.base_url", "https://min-api.cryptocompare.com")
	v.SetDefault("price_api.symbols", []string{"BTC", "ETH", "REP", "DASH"})
	v.SetDefault("price_api.quotes", []string{"USD"})
	v.SetDefault("price_api.timeout", 10*time.Second)
	v.SetDefault("price_api.api_key", "")

	v.SetDefault("threshold.source", "static")
	v.SetDefault("threshold.asset", "BTC")
	v.SetDefault("threshold.quote", "USD")
	v.SetDefault("threshold.default", 18000.0)
	v.SetDefault("threshold.timeout", 5*time.Second)
	v.SetDefault("threshold.dynamodb.table", "crypto_thresholds")
	v.SetDefault("threshold.redis.addr", "localhost:6379")
	v.SetDefault("threshold.redis.key_prefix", "threshold:")
	v.SetDefault("threshold.redis.password", "")
	v.SetDefault("threshold.redis.db", 0)

	v.SetDefault("notify.secret_source", "env")
	v.SetDefault("notify.secret_name", "SLACK_WEBHOOK_URL")
	v.SetDefault("notify.username", "Price Alerts")
	v.SetDefault("notify.icon_emoji", ":moneybag:")
	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("lake.sink", "s3")
	v.SetDefault("lake.bucket", "prefectdata")
	v.SetDefault("lake.prefix", "crypto")
	v.SetDefault("lake.database", "default")
	v.SetDefault("lake.table", "crypto")
	v.SetDefault("lake.timeout", 30*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.dbname", "cryptoetl")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.password_parameter", "")
	v.SetDefault("postgres.create_db", false)
	v.SetDefault("postgres.max_open_conns", 5)
	v.SetDefault("postgres.max_idle_conns", 2)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("schedule.mode", "once")
	v.SetDefault("schedule.cron", "*/5 * * * *")
	v.SetDefault("schedule.loop_interval", time.Duration(0))

	v.SetDefault("metrics.addr", "")

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.endpoint", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "prod")
	v.SetDefault("log.output_file", "")
}

// Flags registers the command line overrides understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to config.yaml")
	fs.String("mode", "", "run mode: once, loop or cron")
	fs.Float64("threshold", 0, "override the static alert threshold")
}

// Load loads application configuration using Viper.
// Defaults are applied first, then config.yaml (optional), then environment
// variables (PRICE_API_BASE_URL style), then any flags set in fs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if path := flagString(fs, "config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if fs != nil {
		if f := fs.Lookup("mode"); f != nil && f.Changed {
			v.Set("schedule.mode", f.Value.String())
		}
		if f := fs.Lookup("threshold"); f != nil && f.Changed {
			th, err := fs.GetFloat64("threshold")
			if err != nil {
				return nil, fmt.Errorf("invalid threshold flag: %w", err)
			}
			v.Set("threshold.default", th)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects option values no component knows how to serve.
func (c *Config) Validate() error {
	if len(c.PriceAPI.Symbols) == 0 || len(c.PriceAPI.Quotes) == 0 {
		return errors.New("price_api.symbols and price_api.quotes must not be empty")
	}
	switch c.Threshold.Source {
	case "none", "static", "dynamodb", "redis":
	default:
		return fmt.Errorf("unknown threshold.source %q", c.Threshold.Source)
	}
	switch c.Notify.SecretSource {
	case "env", "ssm":
	default:
		return fmt.Errorf("unknown notify.secret_source %q", c.Notify.SecretSource)
	}
	switch c.Lake.Sink {
	case "s3", "postgres", "memory":
	default:
		return fmt.Errorf("unknown lake.sink %q", c.Lake.Sink)
	}
	switch c.Schedule.Mode {
	case "once", "loop", "cron":
	default:
		return fmt.Errorf("unknown schedule.mode %q", c.Schedule.Mode)
	}
	return nil
}

func flagString(fs *pflag.FlagSet, name string) string {
	if fs == nil {
		return ""
	}
	s, err := fs.GetString(name)
	if err != nil {
		return ""
	}
	return s
}
