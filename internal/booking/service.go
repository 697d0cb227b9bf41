package booking

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rdanilin/cinebook/internal/adapters/stripe"
	"github.com/rdanilin/cinebook/internal/availability"
	"github.com/rdanilin/cinebook/internal/domain"
	"github.com/rdanilin/cinebook/internal/observability"
)

const checkoutExpiry = 30 * time.Minute

type ShowStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Show, error)
	HoldSeats(ctx context.Context, showID uuid.UUID, seats []string, userID string) error
	ReleaseSeats(ctx context.Context, showID uuid.UUID, seats []string) error
}

type BookingStore interface {
	Create(ctx context.Context, booking domain.Booking) error
	SetPaymentLink(ctx context.Context, id uuid.UUID, url string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
}

type MovieStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Movie, error)
}

type SeatLocker interface {
	SetHoldLock(ctx context.Context, showID, seat, userID string, ttl time.Duration) (bool, error)
}

type PaymentProvider interface {
	CreateSession(ctx context.Context, p stripe.SessionParams) (string, error)
}

type Service struct {
	shows    ShowStore
	bookings BookingStore
	movies   MovieStore
	checker  *availability.Checker
	locker   SeatLocker
	payments PaymentProvider
	logger   observability.Logger
	holdTTL  time.Duration
}

func NewService(
	shows ShowStore,
	bookings BookingStore,
	movies MovieStore,
	checker *availability.Checker,
	locker SeatLocker,
	payments PaymentProvider,
	logger observability.Logger,
	holdTTL time.Duration,
) *Service {
	return &Service{
		shows:    shows,
		bookings: bookings,
		movies:   movies,
		checker:  checker,
		locker:   locker,
		payments: payments,
		logger:   logger,
		holdTTL:  holdTTL,
	}
}

// Create books the requested seats for the user and returns the checkout
// redirect URL. Seats are marked through an atomic conditional update, so
// a concurrent booking for an overlapping seat set declines instead of
// double-booking. If checkout-session creation fails after the seats are
// marked, the soft hold stays in place until the expiry worker releases it.
func (s *Service) Create(ctx context.Context, userID string, showID uuid.UUID, seats []string, origin string) (string, error) {
	if len(seats) == 0 {
		return "", domain.ErrInvalidInput
	}
	for _, seat := range seats {
		if !validSeatLabel(seat) {
			return "", domain.ErrInvalidInput
		}
	}

	if !s.checker.Check(ctx, showID, seats) {
		return "", domain.ErrSeatsUnavailable
	}

	show, err := s.shows.Get(ctx, showID)
	if err != nil {
		return "", err
	}
	movie, err := s.movies.Get(ctx, show.MovieID)
	if err != nil {
		return "", err
	}

	for _, seat := range seats {
		ok, err := s.locker.SetHoldLock(ctx, showID.String(), seat, userID, s.holdTTL)
		if err != nil {
			return "", errors.Wrap(err, "seat lock")
		}
		if !ok {
			return "", domain.ErrSeatsUnavailable
		}
	}

	if err := s.shows.HoldSeats(ctx, showID, seats, userID); err != nil {
		return "", err
	}

	bk := domain.NewBooking(userID, show, seats)
	if err := s.bookings.Create(ctx, bk); err != nil {
		if relErr := s.shows.ReleaseSeats(ctx, showID, seats); relErr != nil {
			s.logger.WithError(relErr).Error("failed to release seats after booking create error")
		}
		return "", err
	}

	url, err := s.payments.CreateSession(ctx, stripe.SessionParams{
		BookingID:   bk.ID,
		ProductName: movie.Title,
		Amount:      bk.Amount,
		Origin:      origin,
		ExpiresIn:   checkoutExpiry,
	})
	if err != nil {
		// Deliberate soft hold: the seats stay marked and the expiry
		// worker cleans up if no payment ever arrives.
		return "", errors.Wrap(err, "create checkout session")
	}

	if err := s.bookings.SetPaymentLink(ctx, bk.ID, url); err != nil {
		return "", err
	}
	return url, nil
}

// Seat labels end up as field names inside the show's occupied-seat
// document, where ".", "$" and NUL change the path shape instead of
// naming a seat.
func validSeatLabel(seat string) bool {
	if seat == "" {
		return false
	}
	return !strings.ContainsAny(seat, ".$\x00")
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}
