package consumers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/pkg/logger"
)

type mockReader struct {
	messages chan kafka.Message
	closed   atomic.Bool
}

func (m *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg, ok := <-m.messages:
		if !ok {
			return kafka.Message{}, errors.New("reader closed")
		}
		return msg, nil
	}
}

func (m *mockReader) Close() error {
	m.closed.Store(true)
	return nil
}

type countingTrigger struct{ n atomic.Int32 }

func (c *countingTrigger) MarkDirty() { c.n.Add(1) }

func TestModelUpdatesConsumer(t *testing.T) {
	reader := &mockReader{messages: make(chan kafka.Message, 3)}
	trigger := &countingTrigger{}
	c := NewModelUpdatesConsumer(reader, trigger, logger.NewNop())

	reader.messages <- kafka.Message{Value: []byte(`{"species":["dog","cat"],"version":"2026.03"}`)}
	reader.messages <- kafka.Message{Value: []byte(`not json`)}
	reader.messages <- kafka.Message{Value: []byte(`{"species":[]}`)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return trigger.n.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.True(t, reader.closed.Load())
	assert.Equal(t, int32(2), trigger.n.Load(), "malformed events do not trigger reloads")
}
