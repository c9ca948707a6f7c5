package middleware

import (
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
)

// Timed runs fn and logs its duration at DEBUG level under op.
// Pass nil logger to disable logging (makes it optional/injectable).
// The error from fn is returned unchanged.
func Timed(logger *zap.Logger, op string, fn func() error) error {
	_, err := TimedResult(logger, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// TimedResult is Timed for operations that produce a value.
func TimedResult[T any](logger *zap.Logger, op string, fn func() (T, error), fields ...zap.Field) (T, error) {
	if logger == nil {
		return fn()
	}

	start := time.Now()
	result, err := fn()

	logFields := append([]zap.Field{
		zap.String("operation", op),
		zap.Duration("duration", time.Since(start)),
	}, fields...)
	if err != nil {
		logFields = append(logFields, zap.String("error", logging.SanitizeError(err)))
	}

	logger.Debug("Operation completed", logFields...)
	return result, err
}
