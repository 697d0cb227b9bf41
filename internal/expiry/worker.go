package expiry

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rdanilin/cinebook/internal/domain"
	"github.com/rdanilin/cinebook/internal/observability"
)

type BookingStore interface {
	UnpaidCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ShowStore interface {
	ReleaseSeats(ctx context.Context, showID uuid.UUID, seats []string) error
}

type SeatLocker interface {
	ReleaseHoldLock(ctx context.Context, showID, seat string) error
}

// Worker releases soft holds whose bookings stayed unpaid past the hold
// TTL. Every step tolerates not-found so overlapping or repeated runs are
// safe no-ops.
type Worker struct {
	bookings BookingStore
	shows    ShowStore
	locker   SeatLocker
	logger   observability.Logger
	holdTTL  time.Duration
}

func NewWorker(bookings BookingStore, shows ShowStore, locker SeatLocker, logger observability.Logger, holdTTL time.Duration) *Worker {
	return &Worker{
		bookings: bookings,
		shows:    shows,
		locker:   locker,
		logger:   logger,
		holdTTL:  holdTTL,
	}
}

func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := w.RunOnce(ctx, now); err != nil {
				w.logger.WithError(err).Error("expiry pass failed")
			}
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context, now time.Time) error {
	stale, err := w.bookings.UnpaidCreatedBefore(ctx, now.Add(-w.holdTTL))
	if err != nil {
		return errors.Wrap(err, "find stale bookings")
	}
	for _, b := range stale {
		if err := w.Release(ctx, b.ID); err != nil {
			w.logger.WithError(err).WithField("booking_id", b.ID).Error("failed to release hold")
		}
	}
	return nil
}

// Release re-reads the booking and, if it is still unpaid, frees its seats
// and deletes it. A paid booking is left untouched; a booking that is
// already gone is a no-op.
func (w *Worker) Release(ctx context.Context, bookingID uuid.UUID) error {
	b, err := w.bookings.Get(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if b.IsPaid {
		return nil
	}

	if err := w.shows.ReleaseSeats(ctx, b.ShowID, b.Seats); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	for _, seat := range b.Seats {
		if err := w.locker.ReleaseHoldLock(ctx, b.ShowID.String(), seat); err != nil {
			w.logger.WithError(err).Warn("failed to drop seat lock")
		}
	}

	if err := w.bookings.Delete(ctx, b.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	observability.SeatHoldsReleased.Add(float64(len(b.Seats)))
	return nil
}
