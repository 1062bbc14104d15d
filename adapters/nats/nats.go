package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamConfig 事件 stream 的設定
type StreamConfig struct {
	Stream  string
	Subject string
	MaxAge  time.Duration
}

// Connect 建立連線與 JetStream context，斷線時無限重連
func Connect(url, name string) (*nats.Conn, jetstream.JetStream, error) {
	const op = "Connect"
	conn, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("[%s] Fail to connect to nats, err=%w", op, err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("[%s] Fail to create jetstream context, err=%w", op, err)
	}
	return conn, js, nil
}

// EnsureStream 建立或更新保存拍賣事件的 stream
// 以事件 ID 作為 Nats-Msg-Id，在 duplicate window 內重複送出的事件只會保存一次
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg StreamConfig) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "auction lifecycle events",
		Subjects:    []string{cfg.Subject + ".>"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		Duplicates:  2 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("fail to create or update stream %s, err=%w", cfg.Stream, err)
	}
	return stream, nil
}
