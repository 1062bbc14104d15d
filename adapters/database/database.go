package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

type Config struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
	Debug    bool
}

func (c Config) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Database)
	if c.Schema != "" {
		dsn += "&search_path=" + c.Schema
	}
	return dsn
}

// GormConfig 回傳資料表名稱帶有 schema 前綴的 gorm 設定
func GormConfig(schemaName string, debug bool) *gorm.Config {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
	if schemaName != "" {
		cfg.NamingStrategy = schema.NamingStrategy{
			TablePrefix: schemaName + ".",
		}
	}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	return cfg
}

// Open 連線到 PostgreSQL
func Open(cfg Config) (*gorm.DB, error) {
	const op = "Open"
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(cfg.Schema, cfg.Debug))
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}
	if cfg.Schema != "" {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", cfg.Schema)).Error; err != nil {
			return nil, fmt.Errorf("[%s] Fail to create schema, err=%w", op, err)
		}
	}
	return db, nil
}
