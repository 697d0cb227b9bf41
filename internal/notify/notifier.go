package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rdanilin/cinebook/internal/domain"
	"github.com/rdanilin/cinebook/internal/observability"
)

type BookingStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)
}

type ShowStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Show, error)
	StartingBetween(ctx context.Context, from, to time.Time) ([]domain.Show, error)
}

type MovieStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Movie, error)
}

type UserStore interface {
	Get(ctx context.Context, id string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.User, error)
}

type Notifier struct {
	bookings BookingStore
	shows    ShowStore
	movies   MovieStore
	users    UserStore
	mailer   Mailer
	logger   observability.Logger
}

func NewNotifier(bookings BookingStore, shows ShowStore, movies MovieStore, users UserStore, mailer Mailer, logger observability.Logger) *Notifier {
	return &Notifier{
		bookings: bookings,
		shows:    shows,
		movies:   movies,
		users:    users,
		mailer:   mailer,
		logger:   logger,
	}
}

// ConfirmBooking emails the booking's user after payment completes.
func (n *Notifier) ConfirmBooking(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := n.bookings.Get(ctx, bookingID)
	if err != nil {
		return errors.Wrap(err, "load booking")
	}
	show, err := n.shows.Get(ctx, booking.ShowID)
	if err != nil {
		return errors.Wrap(err, "load show")
	}
	movie, err := n.movies.Get(ctx, show.MovieID)
	if err != nil {
		return errors.Wrap(err, "load movie")
	}
	user, err := n.users.Get(ctx, booking.UserID)
	if err != nil {
		return errors.Wrap(err, "load user")
	}

	subject := fmt.Sprintf("Payment Confirmation: %q booked", movie.Title)
	body := fmt.Sprintf(
		"<div><h1>Your booking is confirmed</h1><p>Hi %s, your seats %v for %q on %s are booked.</p></div>",
		user.Name, booking.Seats, movie.Title, show.StartAt.Format(time.RFC1123),
	)
	if err := n.mailer.Send(ctx, user.Email, subject, body); err != nil {
		observability.EmailsFailed.Inc()
		return errors.Wrap(err, "send confirmation")
	}
	observability.EmailsSent.Inc()
	return nil
}

// BroadcastNewShow emails every user about a newly added show, one at a
// time. A failed send is logged and the loop continues so one bad address
// cannot silence the rest of the broadcast.
func (n *Notifier) BroadcastNewShow(ctx context.Context, movieTitle string) error {
	users, err := n.users.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list users")
	}

	subject := "New show added: " + movieTitle
	body := fmt.Sprintf("<div><h1>New show added</h1><p>%s is now open for booking.</p></div>", movieTitle)

	for _, user := range users {
		if err := n.mailer.Send(ctx, user.Email, subject, body); err != nil {
			observability.EmailsFailed.Inc()
			n.logger.WithError(err).WithField("email", user.Email).Error("broadcast send failed")
			continue
		}
		observability.EmailsSent.Inc()
	}
	return nil
}
