package nats

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// 只實作測試會用到的方法，其餘方法呼叫到會 panic
type fakeJetStream struct {
	jetstream.JetStream
	mu        sync.Mutex
	published []*nats.Msg
	streamCfg *jetstream.StreamConfig
	err       error
}

func (f *fakeJetStream) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.published = append(f.published, msg)
	return &jetstream.PubAck{Stream: "AUCTION_EVENTS", Sequence: uint64(len(f.published))}, nil
}

func (f *fakeJetStream) CreateOrUpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.streamCfg = &cfg
	return &fakeStream{}, nil
}

type fakeStream struct {
	jetstream.Stream
	consumerCfg *jetstream.ConsumerConfig
	consumer    *fakeConsumer
}

func (f *fakeStream) CreateOrUpdateConsumer(_ context.Context, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	f.consumerCfg = &cfg
	f.consumer = &fakeConsumer{}
	return f.consumer, nil
}

type fakeConsumer struct {
	jetstream.Consumer
	handler jetstream.MessageHandler
	cc      *fakeConsumeContext
}

func (f *fakeConsumer) Consume(handler jetstream.MessageHandler, _ ...jetstream.PullConsumeOpt) (jetstream.ConsumeContext, error) {
	f.handler = handler
	f.cc = &fakeConsumeContext{closed: make(chan struct{})}
	return f.cc, nil
}

type fakeConsumeContext struct {
	closed  chan struct{}
	stopped bool
}

func (f *fakeConsumeContext) Stop() {
	if !f.stopped {
		f.stopped = true
		close(f.closed)
	}
}

func (f *fakeConsumeContext) Drain() {
	f.Stop()
}

func (f *fakeConsumeContext) Closed() <-chan struct{} {
	return f.closed
}

type fakeMsg struct {
	jetstream.Msg
	subject string
	data    []byte
	acked   bool
	naked   bool
	termed  bool
}

func (f *fakeMsg) Data() []byte    { return f.data }
func (f *fakeMsg) Subject() string { return f.subject }
func (f *fakeMsg) Ack() error      { f.acked = true; return nil }
func (f *fakeMsg) Nak() error      { f.naked = true; return nil }
func (f *fakeMsg) Term() error     { f.termed = true; return nil }
