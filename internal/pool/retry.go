package pool

import (
	"context"
	"time"
)

// sleepCtx waits for d while remaining responsive to cancellation.
// Returns false if ctx was canceled before the interval elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
