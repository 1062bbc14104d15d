package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gavel/adapters/database"
	"gavel/api"
)

func ParseArgs() (Args, error) {
	// 有 .env 時先載入，已存在的環境變數優先
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Args{}, fmt.Errorf("fail to load .env file, err=%w", err)
	}

	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")
	pflag.String("server-id", "", "instance name, defaults to hostname")
	pflag.String("log-level", "info", "debug, info, warn or error")
	pflag.Duration("shutdown-timeout", 30*time.Second, "")

	// store config
	pflag.String("store", string(api.StoreMemory), "memory or postgres")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")
	pflag.Bool("db-debug", false, "")

	// redis config
	pflag.String("redis-addr", "", "empty to run without redis")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "gavel:", "")
	pflag.String("redis-consumer-group", "gavel-archiver", "")
	pflag.Int64("redis-stream-max-len", 100000, "")
	pflag.Duration("redis-lock-expiry", 30*time.Second, "")

	// redis stream keys
	pflag.String("redis-stream-key-for-events", "gavel-auction-events", "")

	// nats config
	pflag.String("nats-url", "", "empty to run without nats")
	pflag.String("nats-stream", "AUCTION_EVENTS", "")
	pflag.String("nats-subject", "auction.events", "")
	pflag.Duration("nats-max-age", 7*24*time.Hour, "")
	pflag.String("nats-durable", "gavel-archiver", "")

	// auth config
	pflag.String("auth-public-key-file", "", "PEM encoded ed25519 public key, empty to disable auth")

	// engine config
	pflag.Int("engine-bid-retries", 3, "")
	pflag.Duration("engine-retry-backoff", 5*time.Millisecond, "")
	pflag.Duration("engine-extension-window", 2*time.Minute, "")
	pflag.Duration("engine-extension-amount", 2*time.Minute, "")
	pflag.Int("engine-max-extensions", 10, "")

	// sweeper config
	pflag.Duration("sweeper-interval", time.Minute, "")
	pflag.Int("sweeper-workers", 8, "")
	pflag.Int("sweeper-batch-size", 500, "")

	// order config
	pflag.String("order-currency", "TWD", "")
	pflag.Int32("order-price-exponent", 0, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("GAVEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	args := Args{
		ServerURL:       viper.GetString("server-url"),
		LogLevel:        viper.GetString("log-level"),
		ShutdownTimeout: viper.GetDuration("shutdown-timeout"),
		ServerConfig: api.ServerConfig{
			ID:    viper.GetString("server-id"),
			Store: api.StoreKind(viper.GetString("store")),
			DB: database.Config{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
				Debug:    viper.GetBool("db-debug"),
			},
			Redis: api.RedisConfig{
				Addr:      viper.GetString("redis-addr"),
				Password:  viper.GetString("redis-password"),
				DB:        viper.GetInt("redis-db"),
				KeyPrefix: viper.GetString("redis-key-prefix"),
				StreamKeys: api.RedisStreamKeys{
					Events: viper.GetString("redis-stream-key-for-events"),
				},
				ConsumerGroup: viper.GetString("redis-consumer-group"),
				StreamMaxLen:  viper.GetInt64("redis-stream-max-len"),
				LockExpiry:    viper.GetDuration("redis-lock-expiry"),
			},
			NATS: api.NATSConfig{
				URL:     viper.GetString("nats-url"),
				Stream:  viper.GetString("nats-stream"),
				Subject: viper.GetString("nats-subject"),
				MaxAge:  viper.GetDuration("nats-max-age"),
				Durable: viper.GetString("nats-durable"),
			},
			Engine: api.EngineConfig{
				BidRetries:      viper.GetInt("engine-bid-retries"),
				RetryBackoff:    viper.GetDuration("engine-retry-backoff"),
				ExtensionWindow: viper.GetDuration("engine-extension-window"),
				ExtensionAmount: viper.GetDuration("engine-extension-amount"),
				MaxExtensions:   viper.GetInt("engine-max-extensions"),
			},
			Sweeper: api.SweeperConfig{
				Interval:  viper.GetDuration("sweeper-interval"),
				Workers:   viper.GetInt("sweeper-workers"),
				BatchSize: viper.GetInt("sweeper-batch-size"),
			},
			Order: api.OrderConfig{
				Currency:      viper.GetString("order-currency"),
				PriceExponent: viper.GetInt32("order-price-exponent"),
			},
		},
	}
	if args.ServerConfig.ID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return Args{}, fmt.Errorf("fail to get hostname, err=%w", err)
		}
		args.ServerConfig.ID = hostname
	}
	if path := viper.GetString("auth-public-key-file"); path != "" {
		pem, err := os.ReadFile(path)
		if err != nil {
			return Args{}, fmt.Errorf("fail to read public key, err=%w", err)
		}
		publicKey, err := api.ParsePublicKey(pem)
		if err != nil {
			return Args{}, err
		}
		args.ServerConfig.Auth.PublicKey = publicKey
	}
	return args, nil
}

type Args struct {
	ServerURL       string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerConfig    api.ServerConfig
}

func (args Args) Validate() error {
	cfg := args.ServerConfig
	switch {
	case args.ServerURL == "":
		return errors.New("server url is required")
	case cfg.Store != api.StoreMemory && cfg.Store != api.StorePostgres:
		return fmt.Errorf("unknown store %q", cfg.Store)
	case cfg.Store == api.StorePostgres && (cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Database == ""):
		return errors.New("db host, user and database are required for postgres store")
	case cfg.Redis.Addr != "" && (cfg.Redis.StreamKeys.Events == "" || cfg.Redis.ConsumerGroup == ""):
		return errors.New("redis stream key and consumer group are required")
	case cfg.NATS.URL != "" && (cfg.NATS.Stream == "" || cfg.NATS.Subject == ""):
		return errors.New("nats stream and subject are required")
	case cfg.Sweeper.Interval <= 0:
		return errors.New("sweeper interval must be positive")
	case cfg.Order.Currency == "":
		return errors.New("order currency is required")
	}
	return nil
}

func (args Args) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(args.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
