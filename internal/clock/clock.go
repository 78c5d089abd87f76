// Package clock drives a periodic tick function.
package clock

import (
	"context"
	"time"
)

// RunTimer calls tick every period until ctx is done.
func RunTimer(ctx context.Context, period time.Duration, tick func()) {
	tk := time.NewTicker(period)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			tick()
		}
	}
}

// Start runs RunTimer in a goroutine and returns a function that stops it
// and waits for the last tick to finish.
func Start(period time.Duration, tick func()) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunTimer(ctx, period, tick)
	}()
	return func() {
		cancel()
		<-done
	}
}
