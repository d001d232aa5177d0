// Package notifications delivers assembled reports and stream lifecycle
// events to dashboard clients over Redis pub/sub and websockets.
package notifications

import (
	"context"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes report and lifecycle payloads into Redis channels.
// A nil Redis client degrades to a no-op so single-node deployments
// without Redis still run.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishReport sends an assembled report payload to the stream's channel.
// Payloads are opaque JSON; rendering belongs to the subscriber.
func (n *Notifier) PublishReport(ctx context.Context, streamID uint, payload []byte) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, ReportChannel(streamID), payload).Err()
}

// PublishLifecycle announces a stream lifecycle transition (started, ended,
// failed, merged) to the lifecycle channel.
func (n *Notifier) PublishLifecycle(ctx context.Context, streamID uint, payload []byte) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, LifecycleChannel(streamID), payload).Err()
}

// StartReportSubscriber subscribes to every stream's report and lifecycle
// channel and calls onMessage for each incoming message.
func (n *Notifier) StartReportSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "reports:stream:*", "lifecycle:stream:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in ReportSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// ReportChannel derives the Redis channel name for a stream's reports.
func ReportChannel(streamID uint) string {
	return "reports:stream:" + strconv.FormatUint(uint64(streamID), 10)
}

// LifecycleChannel derives the Redis channel name for a stream's lifecycle events.
func LifecycleChannel(streamID uint) string {
	return "lifecycle:stream:" + strconv.FormatUint(uint64(streamID), 10)
}
