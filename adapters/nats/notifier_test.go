package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"gavel/models"
)

func TestNewNotifier(t *testing.T) {
	_, err := NewNotifier(nil, "auction")
	assert.Error(t, err)

	_, err = NewNotifier(&fakeJetStream{}, "")
	assert.Error(t, err)
}

func TestNotifier_Notify(t *testing.T) {
	js := &fakeJetStream{}
	notifier, err := NewNotifier(js, "auction.events")
	require.NoError(t, err)

	auctionID := uuid.New()
	event := models.NewAuctionExtendedEvent(auctionID, time.Now().Add(time.Minute).UTC(), time.Now().UTC())
	require.NoError(t, notifier.Notify(context.Background(), event))

	require.Len(t, js.published, 1)
	msg := js.published[0]
	assert.Equal(t, "auction.events."+auctionID.String()+".auction_extended", msg.Subject)
	assert.Equal(t, event.ID.String(), msg.Header.Get(nats.MsgIdHdr))

	var decoded models.Event
	require.NoError(t, msgpack.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.Kind, decoded.Kind)
	assert.True(t, event.EndTime.Equal(*decoded.EndTime))
}

func TestNotifier_NotifyError(t *testing.T) {
	publishErr := errors.New("no responders")
	notifier, err := NewNotifier(&fakeJetStream{err: publishErr}, "auction.events")
	require.NoError(t, err)

	err = notifier.Notify(context.Background(), models.NewAuctionUnsoldEvent(uuid.New(), time.Now()))
	assert.ErrorIs(t, err, publishErr)
	assert.Contains(t, err.Error(), "auction_unsold")
}

func TestEnsureStream(t *testing.T) {
	js := &fakeJetStream{}
	_, err := EnsureStream(context.Background(), js, StreamConfig{Stream: "AUCTION_EVENTS", Subject: "auction.events", MaxAge: time.Hour})
	require.NoError(t, err)

	require.NotNil(t, js.streamCfg)
	assert.Equal(t, "AUCTION_EVENTS", js.streamCfg.Name)
	assert.Equal(t, []string{"auction.events.>"}, js.streamCfg.Subjects)
	assert.Equal(t, time.Hour, js.streamCfg.MaxAge)
	assert.Positive(t, js.streamCfg.Duplicates)
}
