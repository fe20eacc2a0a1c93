package observability

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// FlushTelemetry closes the given resources and flushes log buffers before process exit.
// For pull-based Prometheus, metrics are already exposed. Call during graceful shutdown
// after in-flight requests have drained.
func FlushTelemetry(ctx context.Context, logger *zap.Logger, closers ...io.Closer) error {
	var errs []error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("flush logs: %w", err))
		}
	}
	return errors.Join(errs...)
}
