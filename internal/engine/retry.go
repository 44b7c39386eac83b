package engine

import (
	"context"
	"errors"

	"github.com/roach88/gpures/internal/reservation"
	"github.com/roach88/gpures/internal/store"
)

// run executes fn in a store transaction.
//
// Domain errors and ErrInconsistent returned by fn are final. A stale
// version re-runs the whole transaction, conflict detection included, up to
// maxAttempts times. Any other failure is treated as a storage fault: it is retried once, and fn
// must be safe to replay with the same idempotency key. A second fault is
// surfaced as a PersistenceError.
func (e *Engine) run(ctx context.Context, op string, fn func(*store.Tx) error) error {
	var (
		staleAttempts int
		faultRetried  bool
	)
	for {
		err := e.store.InTx(ctx, fn)
		switch {
		case err == nil:
			return nil
		case reservation.KindOf(err) != "":
			return err
		case ctx.Err() != nil:
			return reservation.NewPersistenceError(op, err)
		case errors.Is(err, ErrInconsistent):
			e.logger.Error("inconsistent stored state", "op", op, "error", err)
			return err
		case errors.Is(err, store.ErrStale):
			staleAttempts++
			if staleAttempts >= e.maxAttempts {
				return reservation.NewPersistenceError(op, err)
			}
			e.logger.Debug("stale conflict set, retrying", "op", op, "attempt", staleAttempts)
		default:
			if faultRetried {
				e.logger.Error("storage failure after retry", "op", op, "error", err)
				return reservation.NewPersistenceError(op, err)
			}
			faultRetried = true
			e.logger.Warn("storage failure, retrying", "op", op, "error", err)
		}
	}
}

// read runs a non-transactional read, retrying a storage failure once.
func (e *Engine) read(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || reservation.KindOf(err) != "" || errors.Is(err, store.ErrNotFound) {
		return err
	}
	e.logger.Warn("storage failure, retrying", "op", op, "error", err)
	if err = fn(); err == nil || reservation.KindOf(err) != "" || errors.Is(err, store.ErrNotFound) {
		return err
	}
	return reservation.NewPersistenceError(op, err)
}
