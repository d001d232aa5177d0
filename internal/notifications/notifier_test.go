package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishReport(context.Background(), 1, []byte(`{}`)))
	assert.NoError(t, n.PublishLifecycle(context.Background(), 1, []byte(`{}`)))
	assert.NoError(t, n.StartReportSubscriber(context.Background(), nil))
}

func TestReportChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		streamID uint
		expected string
	}{
		{1, "reports:stream:1"},
		{42, "reports:stream:42"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ReportChannel(tt.streamID))
	}
}

func TestLifecycleChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "lifecycle:stream:7", LifecycleChannel(7))
}

func TestNotifier_PublishReachesSubscriber(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received int32
	channels := make(chan string, 4)
	require.NoError(t, n.StartReportSubscriber(ctx, func(channel, _ string) {
		atomic.AddInt32(&received, 1)
		channels <- channel
	}))

	require.NoError(t, n.PublishReport(context.Background(), 3, []byte(`{"report_id":"r1"}`)))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "reports:stream:3", <-channels)

	require.NoError(t, n.PublishLifecycle(context.Background(), 3, []byte(`{"event":"ended"}`)))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "lifecycle:stream:3", <-channels)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	payloads := make(chan string, 2)
	require.NoError(t, n.StartReportSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.PublishReport(context.Background(), 1, []byte("before-cancel")))
	assert.Eventually(t, func() bool {
		select {
		case <-payloads:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.PublishReport(context.Background(), 1, []byte("after-cancel")))
	assert.Never(t, func() bool {
		select {
		case payload := <-payloads:
			return payload == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)
}
