package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gavel/api"
)

func validArgs() Args {
	return Args{
		ServerURL:       "0.0.0.0:8080",
		LogLevel:        "info",
		ShutdownTimeout: time.Second,
		ServerConfig: api.ServerConfig{
			ID:      "test",
			Store:   api.StoreMemory,
			Sweeper: api.SweeperConfig{Interval: time.Minute},
			Order:   api.OrderConfig{Currency: "TWD"},
		},
	}
}

func TestArgs_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(args *Args)
		wantErr bool
	}{
		{"預設設定", func(args *Args) {}, false},
		{"缺少伺服器位址", func(args *Args) { args.ServerURL = "" }, true},
		{"未知的儲存層", func(args *Args) { args.ServerConfig.Store = "mysql" }, true},
		{"postgres 缺少連線資訊", func(args *Args) { args.ServerConfig.Store = api.StorePostgres }, true},
		{"postgres", func(args *Args) {
			args.ServerConfig.Store = api.StorePostgres
			args.ServerConfig.DB.Host = "localhost"
			args.ServerConfig.DB.User = "gavel"
			args.ServerConfig.DB.Database = "gavel"
		}, false},
		{"redis 缺少 stream", func(args *Args) { args.ServerConfig.Redis.Addr = "localhost:6379" }, true},
		{"redis", func(args *Args) {
			args.ServerConfig.Redis.Addr = "localhost:6379"
			args.ServerConfig.Redis.StreamKeys.Events = "events"
			args.ServerConfig.Redis.ConsumerGroup = "archiver"
		}, false},
		{"nats 缺少 subject", func(args *Args) {
			args.ServerConfig.NATS.URL = "nats://localhost:4222"
			args.ServerConfig.NATS.Stream = "AUCTION_EVENTS"
		}, true},
		{"掃描間隔為零", func(args *Args) { args.ServerConfig.Sweeper.Interval = 0 }, true},
		{"缺少幣別", func(args *Args) { args.ServerConfig.Order.Currency = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := validArgs()
			tt.modify(&args)
			err := args.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArgs_Logger(t *testing.T) {
	args := validArgs()
	args.LogLevel = "debug"
	assert.NotNil(t, args.Logger())
	args.LogLevel = "not-a-level"
	assert.NotNil(t, args.Logger())
}
