package api

import (
	"crypto/ed25519"
	"time"

	"gavel/adapters/database"
)

type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
)

type ServerConfig struct {
	// ID 這個實例的名稱，用於 consumer group 與 nats 連線名稱
	ID      string
	Store   StoreKind
	DB      database.Config
	Redis   RedisConfig
	NATS    NATSConfig
	Auth    AuthConfig
	Engine  EngineConfig
	Sweeper SweeperConfig
	Order   OrderConfig
}

// RedisConfig Addr 為空時不使用 redis，事件只在本機廣播
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	StreamKeys    RedisStreamKeys
	ConsumerGroup string
	StreamMaxLen  int64
	LockExpiry    time.Duration
}

type RedisStreamKeys struct {
	Events string
}

// NATSConfig URL 為空時不發布到 JetStream
type NATSConfig struct {
	URL     string
	Stream  string
	Subject string
	MaxAge  time.Duration
	Durable string
}

// AuthConfig PublicKey 為空時不驗證 token，出價者由請求內容決定
type AuthConfig struct {
	PublicKey ed25519.PublicKey
}

type EngineConfig struct {
	BidRetries      int
	RetryBackoff    time.Duration
	ExtensionWindow time.Duration
	ExtensionAmount time.Duration
	MaxExtensions   int
}

type SweeperConfig struct {
	Interval  time.Duration
	Workers   int
	BatchSize int
}

type OrderConfig struct {
	Currency      string
	PriceExponent int32
}
