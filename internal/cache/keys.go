package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProductInterestPrefix = "stream:%d:products"
	ReportPrefix          = "stream:%d:report"
	GMVPrefix             = "stream:%d:gmv"
)

const (
	ProductInterestTTL = 2 * time.Minute
	ReportTTL          = 10 * time.Minute
	GMVTTL             = 5 * time.Minute
)

func ProductInterestKey(streamID uint) string {
	return fmt.Sprintf(ProductInterestPrefix, streamID)
}

func ReportKey(streamID uint) string {
	return fmt.Sprintf(ReportPrefix, streamID)
}

func GMVKey(streamID uint) string {
	return fmt.Sprintf(GMVPrefix, streamID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateStream drops all cached analytics for a stream. Called after a
// merge or re-parse changes the underlying comment set.
func InvalidateStream(ctx context.Context, streamID uint) {
	Invalidate(ctx, ProductInterestKey(streamID))
	Invalidate(ctx, ReportKey(streamID))
	Invalidate(ctx, GMVKey(streamID))
}
