package stores

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pruner is implemented by in-memory stores that expire entries lazily.
type Pruner interface {
	Prune() int
}

// StartPruning sweeps every target on each tick until ctx is cancelled.
// The returned func cancels and waits for the sweeper to exit.
func StartPruning(ctx context.Context, interval time.Duration, logger *slog.Logger, targets ...Pruner) func() {
	if interval <= 0 || len(targets) == 0 {
		return func() {}
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := 0
				for _, t := range targets {
					removed += t.Prune()
				}
				if removed > 0 {
					logger.Debug("pruned expired entries", "component", "memory_store", "removed", removed)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}
