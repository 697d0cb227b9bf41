package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	stripesdk "github.com/stripe/stripe-go/v79"

	"github.com/rdanilin/cinebook/internal/adapters/rabbit"
	"github.com/rdanilin/cinebook/internal/adapters/stripe"
	"github.com/rdanilin/cinebook/internal/config"
	"github.com/rdanilin/cinebook/internal/domain"
	"github.com/rdanilin/cinebook/internal/identity"
	"github.com/rdanilin/cinebook/internal/idempotency"
	"github.com/rdanilin/cinebook/internal/notify"
	"github.com/rdanilin/cinebook/internal/observability"
)

type BookingCreator interface {
	Create(ctx context.Context, userID string, showID uuid.UUID, seats []string, origin string) (string, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Booking, error)
}

type FavouritesService interface {
	Toggle(ctx context.Context, userID string, movieID uuid.UUID) (bool, error)
	List(ctx context.Context, userID string) ([]domain.Movie, error)
}

type ShowStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Show, error)
	Create(ctx context.Context, show domain.Show) error
	Upcoming(ctx context.Context, now time.Time) ([]domain.Show, error)
}

type MovieStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Movie, error)
	Upsert(ctx context.Context, movie domain.Movie) error
}

type UserStore interface {
	Get(ctx context.Context, id string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type BookingStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	MarkPaid(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context) ([]domain.Booking, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, payload interface{}) error
}

type WebhookParser interface {
	ParseEvent(payload []byte, sigHeader string) (stripesdk.Event, error)
}

type IdempotencyCache interface {
	Get(ctx context.Context, key string) (*idempotency.Response, error)
	Set(ctx context.Context, key string, resp idempotency.Response) error
}

type Handlers struct {
	cfg        *config.Config
	bookingSvc BookingCreator
	favourites FavouritesService
	syncer     *identity.Syncer
	shows      ShowStore
	movies     MovieStore
	users      UserStore
	bookings   BookingStore
	idemp      IdempotencyCache
	pub        EventPublisher
	webhooks   WebhookParser
	logger     observability.Logger
}

func NewHandlers(
	cfg *config.Config,
	bookingSvc BookingCreator,
	favourites FavouritesService,
	syncer *identity.Syncer,
	shows ShowStore,
	movies MovieStore,
	users UserStore,
	bookings BookingStore,
	idemp IdempotencyCache,
	pub EventPublisher,
	webhooks WebhookParser,
	logger observability.Logger,
) *Handlers {
	return &Handlers{
		cfg:        cfg,
		bookingSvc: bookingSvc,
		favourites: favourites,
		syncer:     syncer,
		shows:      shows,
		movies:     movies,
		users:      users,
		bookings:   bookings,
		idemp:      idemp,
		pub:        pub,
		webhooks:   webhooks,
		logger:     logger,
	}
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		decline(w, "User is not authorized")
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if cached, err := h.idemp.Get(r.Context(), key); err == nil && cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(cached.Status)
		w.Write(cached.Result)
		return
	}

	var req struct {
		ShowID        uuid.UUID `json:"showId"`
		SelectedSeats []string  `json:"selectedSeats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decline(w, "invalid request body")
		return
	}

	origin := r.Header.Get("Origin")
	url, err := h.bookingSvc.Create(r.Context(), userID, req.ShowID, req.SelectedSeats, origin)
	if err != nil {
		observability.BookingsDeclined.Inc()
		if errors.Is(err, domain.ErrSeatsUnavailable) {
			decline(w, "Selected seats are not available")
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			decline(w, "Show not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			decline(w, "Invalid seat selection")
			return
		}
		h.logger.WithError(err).Error("booking creation failed")
		decline(w, err.Error())
		return
	}
	observability.BookingsCreated.Inc()

	result, _ := json.Marshal(map[string]interface{}{"success": true, "url": url})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusOK, Result: result})
}

func (h *Handlers) OccupiedSeats(w http.ResponseWriter, r *http.Request) {
	showID, err := uuid.Parse(chi.URLParam(r, "showId"))
	if err != nil {
		decline(w, "invalid show id")
		return
	}

	show, err := h.shows.Get(r.Context(), showID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			decline(w, "Show not found")
			return
		}
		h.logger.WithError(err).Error("failed to load show")
		decline(w, err.Error())
		return
	}

	seats := make([]string, 0, len(show.OccupiedSeats))
	for seat := range show.OccupiedSeats {
		seats = append(seats, seat)
	}
	respond(w, map[string]interface{}{"occupiedSeats": seats})
}

func (h *Handlers) UserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		decline(w, "User is not authorized")
		return
	}

	bookings, err := h.bookingSvc.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list bookings")
		decline(w, err.Error())
		return
	}

	payloads := make([]bookingPayload, 0, len(bookings))
	for _, b := range bookings {
		show, err := h.shows.Get(r.Context(), b.ShowID)
		if err != nil {
			continue
		}
		movie, err := h.movies.Get(r.Context(), show.MovieID)
		if err != nil {
			continue
		}
		payloads = append(payloads, toBookingPayload(b, show, movie))
	}
	respond(w, map[string]interface{}{"bookings": payloads})
}

func (h *Handlers) UpdateFavourite(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		decline(w, "User is not authorized")
		return
	}

	raw := r.URL.Query().Get("movieId")
	if raw == "" {
		var req struct {
			MovieID string `json:"movieId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			raw = req.MovieID
		}
	}
	movieID, err := uuid.Parse(raw)
	if err != nil {
		decline(w, "invalid movie id")
		return
	}

	added, err := h.favourites.Toggle(r.Context(), userID, movieID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			decline(w, "User not found")
			return
		}
		h.logger.WithError(err).Error("favourite toggle failed")
		decline(w, err.Error())
		return
	}

	message := "Favourite removed"
	if added {
		message = "Favourite added"
	}
	respond(w, map[string]interface{}{"message": message})
}

func (h *Handlers) Favourites(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		decline(w, "User is not authorized")
		return
	}

	movies, err := h.favourites.List(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list favourites")
		decline(w, err.Error())
		return
	}

	payloads := make([]moviePayload, 0, len(movies))
	for _, m := range movies {
		payloads = append(payloads, toMoviePayload(m))
	}
	respond(w, map[string]interface{}{"movies": payloads})
}

// StripeWebhook finalizes a booking once the payment processor confirms
// the checkout session. The raw body is needed for signature
// verification.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.webhooks.ParseEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	if event.Type != "checkout.session.completed" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var session stripesdk.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		http.Error(w, "bad session payload", http.StatusBadRequest)
		return
	}
	bookingID, err := uuid.Parse(session.Metadata[stripe.MetadataBookingID])
	if err != nil {
		http.Error(w, "bad booking id", http.StatusBadRequest)
		return
	}

	if err := h.bookings.MarkPaid(r.Context(), bookingID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The hold may already be expired; acknowledge so the
			// processor stops retrying.
			w.WriteHeader(http.StatusOK)
			return
		}
		h.logger.WithError(err).Error("failed to mark booking paid")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.pub.PublishJSON(r.Context(), rabbit.KeyBookingPaid, notify.BookingPaidEvent{BookingID: bookingID}); err != nil {
		h.logger.WithError(err).Error("failed to publish booking.paid")
	}
	w.WriteHeader(http.StatusOK)
}

// IdentityWebhook mirrors user lifecycle events from the identity
// provider into the users collection.
func (h *Handlers) IdentityWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if !identity.VerifySignature(payload, r.Header.Get("X-Identity-Signature"), h.cfg.IdentityWebhookSecret) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var ev identity.UserEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if err := h.syncer.Handle(r.Context(), ev); err != nil {
		h.logger.WithError(err).Error("identity sync failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
