package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"

	"gavel/models"
)

// Notifier 將拍賣事件發布到 JetStream
// subject 格式為 <prefix>.<auctionID>.<kind>，訂閱端可以依拍賣或事件種類過濾
type Notifier struct {
	js     jetstream.JetStream
	prefix string
}

func NewNotifier(js jetstream.JetStream, subjectPrefix string) (*Notifier, error) {
	if js == nil {
		return nil, errors.New("jetstream cannot be nil")
	}
	if subjectPrefix == "" {
		return nil, errors.New("subject prefix cannot be empty")
	}
	return &Notifier{js: js, prefix: subjectPrefix}, nil
}

func Subject(prefix string, event models.Event) string {
	return fmt.Sprintf("%s.%s.%s", prefix, event.AuctionID, event.Kind)
}

func (n *Notifier) Notify(ctx context.Context, event models.Event) error {
	const op = "NatsNotifier.Notify"
	data, err := msgpack.Marshal(event)
	if err != nil {
		return fmt.Errorf("[%s] Fail to marshal event, err=%w", op, err)
	}
	msg := nats.NewMsg(Subject(n.prefix, event))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.ID.String())
	if _, err := n.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("[%s] Fail to publish %s event, err=%w", op, event.Kind, err)
	}
	return nil
}
