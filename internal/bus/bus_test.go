package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New[int]()

	c1, err := b.Subscribe()
	require.NoError(t, err)
	c2, err := b.Subscribe()
	require.NoError(t, err)

	b.Publish(42)

	var wg sync.WaitGroup
	wg.Add(2)
	for _, c := range []Consumer[int]{c1, c2} {
		go func(c Consumer[int]) {
			defer wg.Done()
			select {
			case v := <-c.C:
				require.Equal(t, 42, v)
			case <-time.After(time.Second):
				t.Error("timeout waiting for publish")
			}
		}(c)
	}
	wg.Wait()
}

func TestPublishExceptSuppressesLoopback(t *testing.T) {
	b := New[string]()

	self, err := b.Subscribe()
	require.NoError(t, err)
	other, err := b.Subscribe()
	require.NoError(t, err)

	b.PublishExcept("injected", self.ID)

	select {
	case <-self.C:
		t.Fatal("publisher should not observe its own loop-backed publish")
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case v := <-other.C:
		require.Equal(t, "injected", v)
	case <-time.After(time.Second):
		t.Fatal("other subscriber did not receive the publish")
	}
}

func TestOrderPreservedPerSubscriber(t *testing.T) {
	b := New[int]()
	c, err := b.Subscribe()
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		b.Publish(i)
	}

	for i := 0; i < 100; i++ {
		require.Equal(t, i, <-c.C)
	}
}

func TestSubscribeFailsAfterShutdown(t *testing.T) {
	b := New[int]()
	b.Shutdown()

	_, err := b.Subscribe()
	require.ErrorIs(t, err, ErrClosed)
}

func TestUnsubscribeRemovesSubscriber(t *testing.T) {
	b := New[int]()
	c, err := b.Subscribe()
	require.NoError(t, err)
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(c.ID)
	require.Equal(t, 0, b.SubscriberCount())
}
