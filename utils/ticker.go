package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/painter/logging"
)

// SlowLogger starts a goroutine that warns after two seconds, again three seconds later and then
// every five seconds until the returned function is called or ctx is done.
func SlowLogger(ctx context.Context, clk clock.Clock, msg, fieldName, fieldVal string, logger logging.Logger) func() {
	slowTimer := clk.Timer(2 * time.Second)
	firstTick := true

	ctxWithCancel, cancel := context.WithCancel(ctx)
	startTime := clk.Now()
	go func() {
		for {
			select {
			case <-slowTimer.C:
				elapsed := clk.Since(startTime).Round(time.Second).String()
				if firstTick {
					slowTimer.Reset(3 * time.Second)
					firstTick = false
				} else {
					slowTimer.Reset(5 * time.Second)
				}
				logger.Warnw(msg, fieldName, fieldVal, "time_elapsed", elapsed)
			case <-ctxWithCancel.Done():
				return
			}
		}
	}()
	return func() { slowTimer.Stop(); cancel() }
}
