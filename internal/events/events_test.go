package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []cart.Event
}

func (s *recordingSink) Dispatch(_ context.Context, ev cart.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return 1
}

func (s *recordingSink) snapshot() []cart.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cart.Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestHandleRawDispatchesValidEvent(t *testing.T) {
	sink := &recordingSink{}
	ev, err := HandleRaw(context.Background(), sink, constants.EventSourceHTTP, []byte(`{"event":"fraud_alert","data":{"cartId":"c1"}}`))
	require.NoError(t, err)
	assert.Equal(t, constants.EventFraudAlert, ev.Kind())
	assert.Len(t, sink.snapshot(), 1)
}

func TestHandleRawDropsMalformed(t *testing.T) {
	sink := &recordingSink{}
	_, err := HandleRaw(context.Background(), sink, constants.EventSourceHTTP, []byte(`{"event":"cart_update","data":{"cartId":"c1","quantity":0,"product":{"_id":"A"}}}`))
	assert.ErrorIs(t, err, cart.ErrEventInvalid)
	assert.Empty(t, sink.snapshot())
}

func TestRedisSourceDeliversPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := &recordingSink{}
	source := NewRedisSource(client, "", sink)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- source.Run(ctx) }()

	publisher := NewRedisPublisher(client, constants.RedisChannelCartEvents)
	ev := cart.PurchaseComplete{CartID: "c1", TrolleyCode: "T-1"}
	require.Eventually(t, func() bool {
		if len(mr.PubSubChannels("")) == 0 {
			return false
		}
		_ = publisher.Publish(ctx, ev)
		return len(sink.snapshot()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	got := sink.snapshot()[0].(cart.PurchaseComplete)
	assert.Equal(t, "T-1", got.TrolleyCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("redis source did not stop")
	}
}

type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestKafkaSourceProcessesMessages(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Value: []byte(`{"event":"cart_update","data":{"cartId":"c1","quantity":2,"product":{"_id":"A"}}}`)},
		{Value: []byte(`not json`)},
		{Value: []byte(`{"event":"fraud_alert","data":{"cartId":"c2"}}`)},
	}}
	sink := &recordingSink{}
	source := NewKafkaSourceWithReader(reader, constants.KafkaTopicCartEvents, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- source.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.NoError(t, source.Close())
	assert.True(t, reader.closed)

	events := sink.snapshot()
	assert.Equal(t, "c1", events[0].RoutingKey())
	assert.Equal(t, "c2", events[1].RoutingKey())
}

func TestKafkaSourceReadErrorBacksOff(t *testing.T) {
	reader := &erroringReader{}
	source := NewKafkaSourceWithReader(reader, "t", &recordingSink{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, source.Run(ctx))
	assert.LessOrEqual(t, reader.calls, 2)
}

type erroringReader struct {
	calls int
}

func (r *erroringReader) ReadMessage(context.Context) (kafka.Message, error) {
	r.calls++
	return kafka.Message{}, errors.New("broker unavailable")
}

func (r *erroringReader) Close() error { return nil }

type stubPublisher struct {
	published []cart.Event
	err       error
}

func (p *stubPublisher) Publish(_ context.Context, ev cart.Event) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, ev)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func TestRelaySinkForwardsToPublisher(t *testing.T) {
	pub := &stubPublisher{}
	sink := RelaySink{Publisher: pub}
	assert.Equal(t, 1, sink.Dispatch(context.Background(), cart.FraudAlert{CartID: "c1"}))
	require.Len(t, pub.published, 1)

	pub.err = errors.New("redis down")
	assert.Equal(t, 0, sink.Dispatch(context.Background(), cart.FraudAlert{CartID: "c2"}))
	assert.Equal(t, 0, RelaySink{}.Dispatch(context.Background(), cart.FraudAlert{CartID: "c3"}))
}
