package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brojonat/tipjar/service/tipjar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromReceipt(t *testing.T) {
	sentAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event := FromReceipt(&tipjar.Receipt{
		Digest:     "D1",
		Sender:     "0xsender",
		TipJarID:   "0x5",
		Amount:     "0.1",
		AmountMist: 100_000_000,
		CoinID:     "0xb",
		SentAt:     sentAt,
	})

	assert.Equal(t, "D1", event.Digest)
	assert.Equal(t, "0x5", event.TipJarID)
	assert.Equal(t, uint64(100_000_000), event.AmountMist)
	assert.Equal(t, sentAt, event.SentAt)
	assert.False(t, event.PublishedAt.IsZero())
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "tips.0x5", Subject("0x5"))
	assert.Equal(t, "tips.*", Subject(""))
}

func TestMockPublisher_FanOut(t *testing.T) {
	m := NewMockPublisher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all, err := m.Subscribe(ctx, "")
	require.NoError(t, err)
	jar5, err := m.Subscribe(ctx, "0x5")
	require.NoError(t, err)

	require.NoError(t, m.PublishTip(ctx, &TipEvent{Digest: "a", TipJarID: "0x5"}))
	require.NoError(t, m.PublishTip(ctx, &TipEvent{Digest: "b", TipJarID: "0x6"}))

	assert.Equal(t, "a", (<-all).Digest)
	assert.Equal(t, "b", (<-all).Digest)
	assert.Equal(t, "a", (<-jar5).Digest)
	assert.Len(t, jar5, 0)
	assert.Equal(t, 2, m.GetPublishedEventCount())

	cancel()
	require.Eventually(t, func() bool { return m.SubscriberCount() == 0 }, time.Second, time.Millisecond)
}

func TestMockPublisher_Errors(t *testing.T) {
	m := NewMockPublisher()
	boom := errors.New("nats down")
	m.SetPublishError(boom)
	m.SetSubscribeError(boom)

	assert.ErrorIs(t, m.PublishTip(context.Background(), &TipEvent{}), boom)
	_, err := m.Subscribe(context.Background(), "")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, m.GetPublishedEvents())

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
}
