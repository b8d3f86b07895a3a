// Package errorhandler is the single place where background failures are
// absorbed instead of being returned to the UI.
package errorhandler

import (
	"context"
	"errors"

	"github.com/getseabird/questlog/api"
	"github.com/getseabird/questlog/internal/metrics"
	"github.com/go-logr/logr"
)

// Func receives a failure from the named operation. It never panics and
// never propagates the error.
type Func func(op string, err error)

// Empty logs err and drops it. Cancellation is expected during shutdown and
// is ignored; an empty stream is only logged at high verbosity.
func Empty(log logr.Logger, rec metrics.Recorder) Func {
	if rec == nil {
		rec = metrics.Nop
	}
	return func(op string, err error) {
		switch {
		case err == nil:
			return
		case errors.Is(err, context.Canceled), errors.Is(err, api.ErrClosed):
			return
		case errors.Is(err, api.ErrNoUser):
			log.V(4).Info("stream ended without a user", "op", op)
		default:
			log.Error(err, "background operation failed", "op", op)
		}
		rec.RecordSwallowedError(op)
	}
}
