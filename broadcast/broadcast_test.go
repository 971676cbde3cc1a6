package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	topic := NewTopic[string](4)
	a := topic.Subscribe()
	b := topic.Subscribe()

	delivered, dropped := topic.Publish("hello")
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 0, dropped)

	assert.Equal(t, "hello", <-a.C)
	assert.Equal(t, "hello", <-b.C)
}

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	topic := NewTopic[int](8)
	sub := topic.Subscribe()

	for i := 0; i < 5; i++ {
		topic.Publish(i)
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, i, <-sub.C)
	}
}

func TestPublishDropsForFullQueueWithoutBlocking(t *testing.T) {
	topic := NewTopic[int](1)
	sub := topic.Subscribe()

	delivered, dropped := topic.Publish(1)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 0, dropped)

	done := make(chan struct{})
	go func() {
		_, _ = topic.Publish(2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber queue")
	}

	assert.Equal(t, 1, <-sub.C)
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	topic := NewTopic[int](2)
	sub := topic.Subscribe()
	sub.Unsubscribe()

	delivered, _ := topic.Publish(1)
	assert.Equal(t, 0, delivered)
	assert.Equal(t, 0, topic.Subscribers())

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed after Unsubscribe")
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	topic := NewTopic[int](1)
	sub := topic.Subscribe()
	sub.Unsubscribe()
	require.NotPanics(t, sub.Unsubscribe)
}

func TestCloseDetachesEverySubscriber(t *testing.T) {
	topic := NewTopic[int](1)
	a := topic.Subscribe()
	b := topic.Subscribe()

	topic.Close()

	_, aOk := <-a.C
	_, bOk := <-b.C
	assert.False(t, aOk)
	assert.False(t, bOk)
	assert.Equal(t, 0, topic.Subscribers())
}

func TestSubscribersReflectsLiveCount(t *testing.T) {
	topic := NewTopic[int](1)
	assert.Equal(t, 0, topic.Subscribers())

	sub := topic.Subscribe()
	assert.Equal(t, 1, topic.Subscribers())

	sub.Unsubscribe()
	assert.Equal(t, 0, topic.Subscribers())
}
