package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ShutdownStep is one named teardown action run by Shutdown.
type ShutdownStep struct {
	Name string
	Fn   func(context.Context) error
}

// Shutdown runs steps in order under a single deadline. A failing step is logged and does not
// stop the ones after it; all failures are returned joined.
func Shutdown(logger *slog.Logger, timeout time.Duration, steps ...ShutdownStep) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if step.Fn == nil {
			continue
		}
		start := time.Now()
		if err := step.Fn(ctx); err != nil {
			logger.Error("shutdown step failed", "step", step.Name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		logger.Debug("shutdown step done", "step", step.Name, "duration_ms", time.Since(start).Milliseconds())
	}
	return errors.Join(errs...)
}
