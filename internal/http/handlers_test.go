package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripesdk "github.com/stripe/stripe-go/v79"

	"github.com/rdanilin/cinebook/internal/config"
	"github.com/rdanilin/cinebook/internal/domain"
	cinehttp "github.com/rdanilin/cinebook/internal/http"
	"github.com/rdanilin/cinebook/internal/identity"
	"github.com/rdanilin/cinebook/internal/idempotency"
	"github.com/rdanilin/cinebook/internal/observability"
)

type fakeBookingCreator struct {
	url      string
	err      error
	calls    int
	lastUser string
	seats    []string
	bookings []domain.Booking
}

func (f *fakeBookingCreator) Create(ctx context.Context, userID string, showID uuid.UUID, seats []string, origin string) (string, error) {
	f.calls++
	f.lastUser = userID
	f.seats = seats
	return f.url, f.err
}

func (f *fakeBookingCreator) ListForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return f.bookings, nil
}

type fakeFavourites struct {
	added  bool
	err    error
	movies []domain.Movie
	lastID uuid.UUID
}

func (f *fakeFavourites) Toggle(ctx context.Context, userID string, movieID uuid.UUID) (bool, error) {
	f.lastID = movieID
	return f.added, f.err
}

func (f *fakeFavourites) List(ctx context.Context, userID string) ([]domain.Movie, error) {
	return f.movies, f.err
}

type fakeShowStore struct {
	shows   map[uuid.UUID]domain.Show
	created []domain.Show
}

func (f *fakeShowStore) Get(ctx context.Context, id uuid.UUID) (domain.Show, error) {
	show, ok := f.shows[id]
	if !ok {
		return domain.Show{}, domain.ErrNotFound
	}
	return show, nil
}

func (f *fakeShowStore) Create(ctx context.Context, show domain.Show) error {
	f.shows[show.ID] = show
	f.created = append(f.created, show)
	return nil
}

func (f *fakeShowStore) Upcoming(ctx context.Context, now time.Time) ([]domain.Show, error) {
	out := make([]domain.Show, 0, len(f.shows))
	for _, s := range f.shows {
		if s.StartAt.After(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeMovieStore struct {
	movies map[uuid.UUID]domain.Movie
}

func (f *fakeMovieStore) Get(ctx context.Context, id uuid.UUID) (domain.Movie, error) {
	movie, ok := f.movies[id]
	if !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	return movie, nil
}

func (f *fakeMovieStore) Upsert(ctx context.Context, movie domain.Movie) error {
	f.movies[movie.ID] = movie
	return nil
}

type fakeUserStore struct {
	users map[string]domain.User
}

func (f *fakeUserStore) Get(ctx context.Context, id string) (domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) List(ctx context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserStore) Upsert(ctx context.Context, user domain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeBookingStore struct {
	bookings map[uuid.UUID]domain.Booking
	paid     []uuid.UUID
}

func (f *fakeBookingStore) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookingStore) MarkPaid(ctx context.Context, id uuid.UUID) error {
	b, ok := f.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.IsPaid = true
	f.bookings[id] = b
	f.paid = append(f.paid, id)
	return nil
}

func (f *fakeBookingStore) ListAll(ctx context.Context) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0, len(f.bookings))
	for _, b := range f.bookings {
		out = append(out, b)
	}
	return out, nil
}

type fakePublisher struct {
	keys     []string
	payloads []interface{}
}

func (f *fakePublisher) PublishJSON(ctx context.Context, key string, payload interface{}) error {
	f.keys = append(f.keys, key)
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeIdempotency struct {
	cache map[string]idempotency.Response
}

func (f *fakeIdempotency) Get(ctx context.Context, key string) (*idempotency.Response, error) {
	if key == "" {
		return nil, nil
	}
	if resp, ok := f.cache[key]; ok {
		return &resp, nil
	}
	return nil, nil
}

func (f *fakeIdempotency) Set(ctx context.Context, key string, resp idempotency.Response) error {
	if key != "" {
		f.cache[key] = resp
	}
	return nil
}

type fakeWebhookParser struct {
	event stripesdk.Event
	err   error
}

func (f *fakeWebhookParser) ParseEvent(payload []byte, sigHeader string) (stripesdk.Event, error) {
	return f.event, f.err
}

type fixture struct {
	handlers   *cinehttp.Handlers
	bookingSvc *fakeBookingCreator
	favourites *fakeFavourites
	shows      *fakeShowStore
	movies     *fakeMovieStore
	users      *fakeUserStore
	bookings   *fakeBookingStore
	idemp      *fakeIdempotency
	pub        *fakePublisher
	webhooks   *fakeWebhookParser
	cfg        *config.Config
}

func newFixture() *fixture {
	f := &fixture{
		bookingSvc: &fakeBookingCreator{url: "https://checkout.example.com/s"},
		favourites: &fakeFavourites{},
		shows:      &fakeShowStore{shows: map[uuid.UUID]domain.Show{}},
		movies:     &fakeMovieStore{movies: map[uuid.UUID]domain.Movie{}},
		users:      &fakeUserStore{users: map[string]domain.User{}},
		bookings:   &fakeBookingStore{bookings: map[uuid.UUID]domain.Booking{}},
		idemp:      &fakeIdempotency{cache: map[string]idempotency.Response{}},
		pub:        &fakePublisher{},
		webhooks:   &fakeWebhookParser{},
		cfg:        &config.Config{IdentityWebhookSecret: "whsec_test"},
	}
	logger := observability.NewLogger()
	f.handlers = cinehttp.NewHandlers(
		f.cfg,
		f.bookingSvc,
		f.favourites,
		identity.NewSyncer(f.users, logger),
		f.shows,
		f.movies,
		f.users,
		f.bookings,
		f.idemp,
		f.pub,
		f.webhooks,
		logger,
	)
	return f
}

func authedRequest(method, target string, body []byte, userID string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(cinehttp.ContextWithUserID(req.Context(), userID))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestCreateBooking_ReturnsCheckoutURL(t *testing.T) {
	f := newFixture()
	body := []byte(fmt.Sprintf(`{"showId":%q,"selectedSeats":["A1","A2"]}`, uuid.New()))
	req := authedRequest(http.MethodPost, "/api/booking/create", body, "user-1")
	rec := httptest.NewRecorder()

	f.handlers.CreateBooking(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "https://checkout.example.com/s", envelope["url"])
	assert.Equal(t, "user-1", f.bookingSvc.lastUser)
	assert.Equal(t, []string{"A1", "A2"}, f.bookingSvc.seats)
}

func TestCreateBooking_ReplaysRepeatedIdempotencyKey(t *testing.T) {
	f := newFixture()
	body := []byte(fmt.Sprintf(`{"showId":%q,"selectedSeats":["A1"]}`, uuid.New()))
	key := uuid.NewString()

	req := authedRequest(http.MethodPost, "/api/booking/create", body, "user-1")
	req.Header.Set("Idempotency-Key", key)
	first := httptest.NewRecorder()
	f.handlers.CreateBooking(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	req = authedRequest(http.MethodPost, "/api/booking/create", body, "user-1")
	req.Header.Set("Idempotency-Key", key)
	second := httptest.NewRecorder()
	f.handlers.CreateBooking(second, req)

	// The retry is served from the cached response without booking again.
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, f.bookingSvc.calls)
}

func TestCreateBooking_DeclinesUnavailableSeats(t *testing.T) {
	f := newFixture()
	f.bookingSvc.err = domain.ErrSeatsUnavailable
	body := []byte(fmt.Sprintf(`{"showId":%q,"selectedSeats":["A1"]}`, uuid.New()))
	req := authedRequest(http.MethodPost, "/api/booking/create", body, "user-1")
	rec := httptest.NewRecorder()

	f.handlers.CreateBooking(rec, req)

	// Declines keep HTTP 200; the envelope carries the outcome.
	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "Selected seats are not available", envelope["message"])
}

func TestCreateBooking_ShowNotFound(t *testing.T) {
	f := newFixture()
	f.bookingSvc.err = domain.ErrNotFound
	body := []byte(fmt.Sprintf(`{"showId":%q,"selectedSeats":["A1"]}`, uuid.New()))
	req := authedRequest(http.MethodPost, "/api/booking/create", body, "user-1")
	rec := httptest.NewRecorder()

	f.handlers.CreateBooking(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "Show not found", envelope["message"])
}

func TestCreateBooking_RequiresUser(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/booking/create", bytes.NewReader(nil))
	rec := httptest.NewRecorder()

	f.handlers.CreateBooking(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "User is not authorized", envelope["message"])
}

func TestOccupiedSeats(t *testing.T) {
	f := newFixture()
	show := domain.Show{
		ID:            uuid.New(),
		MovieID:       uuid.New(),
		StartAt:       time.Now().Add(time.Hour),
		Price:         150,
		OccupiedSeats: map[string]string{"A1": "user-1", "B4": "user-2"},
	}
	f.shows.shows[show.ID] = show

	router := chi.NewRouter()
	router.Get("/api/booking/seats/{showId}", f.handlers.OccupiedSeats)

	req := httptest.NewRequest(http.MethodGet, "/api/booking/seats/"+show.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])
	seats := envelope["occupiedSeats"].([]interface{})
	assert.ElementsMatch(t, []interface{}{"A1", "B4"}, seats)
}

func TestOccupiedSeats_UnknownShow(t *testing.T) {
	f := newFixture()
	router := chi.NewRouter()
	router.Get("/api/booking/seats/{showId}", f.handlers.OccupiedSeats)

	req := httptest.NewRequest(http.MethodGet, "/api/booking/seats/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "Show not found", envelope["message"])
}

func TestUpdateFavourite_FromQuery(t *testing.T) {
	f := newFixture()
	f.favourites.added = true
	movieID := uuid.New()

	req := authedRequest(http.MethodGet, "/api/user/update-favorite?movieId="+movieID.String(), nil, "user-1")
	rec := httptest.NewRecorder()
	f.handlers.UpdateFavourite(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "Favourite added", envelope["message"])
	assert.Equal(t, movieID, f.favourites.lastID)
}

func TestUpdateFavourite_FromBody(t *testing.T) {
	f := newFixture()
	f.favourites.added = false
	movieID := uuid.New()

	body := []byte(fmt.Sprintf(`{"movieId":%q}`, movieID))
	req := authedRequest(http.MethodGet, "/api/user/update-favorite", body, "user-1")
	rec := httptest.NewRecorder()
	f.handlers.UpdateFavourite(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "Favourite removed", envelope["message"])
	assert.Equal(t, movieID, f.favourites.lastID)
}

func TestStripeWebhook_MarksBookingPaid(t *testing.T) {
	f := newFixture()
	bookingID := uuid.New()
	f.bookings.bookings[bookingID] = domain.Booking{ID: bookingID, UserID: "user-1"}

	sessionJSON, err := json.Marshal(map[string]interface{}{
		"id":       "cs_test_1",
		"metadata": map[string]string{"booking_id": bookingID.String()},
	})
	require.NoError(t, err)
	f.webhooks.event = stripesdk.Event{
		Type: "checkout.session.completed",
		Data: &stripesdk.EventData{Raw: sessionJSON},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/stripe", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	f.handlers.StripeWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{bookingID}, f.bookings.paid)
	require.Len(t, f.pub.keys, 1)
	assert.Equal(t, "booking.paid", f.pub.keys[0])
}

func TestStripeWebhook_IgnoresOtherEventTypes(t *testing.T) {
	f := newFixture()
	f.webhooks.event = stripesdk.Event{Type: "payment_intent.created", Data: &stripesdk.EventData{}}

	req := httptest.NewRequest(http.MethodPost, "/api/stripe", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	f.handlers.StripeWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.bookings.paid)
	assert.Empty(t, f.pub.keys)
}

func TestStripeWebhook_RejectsBadSignature(t *testing.T) {
	f := newFixture()
	f.webhooks.err = fmt.Errorf("signature mismatch")

	req := httptest.NewRequest(http.MethodPost, "/api/stripe", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	f.handlers.StripeWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhook_ExpiredHoldAcks(t *testing.T) {
	f := newFixture()
	sessionJSON, err := json.Marshal(map[string]interface{}{
		"metadata": map[string]string{"booking_id": uuid.NewString()},
	})
	require.NoError(t, err)
	f.webhooks.event = stripesdk.Event{
		Type: "checkout.session.completed",
		Data: &stripesdk.EventData{Raw: sessionJSON},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/stripe", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	f.handlers.StripeWebhook(rec, req)

	// The booking record no longer exists; acknowledge so the processor
	// stops retrying.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.pub.keys)
}

func signIdentityPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestIdentityWebhook_SyncsUser(t *testing.T) {
	f := newFixture()
	payload := []byte(`{
		"type": "user.created",
		"data": {
			"id": "user-9",
			"first_name": "Grace",
			"last_name": "Hopper",
			"email_addresses": [{"email_address": "grace@example.com"}]
		}
	}`)

	req := httptest.NewRequest(http.MethodPost, "/api/identity", bytes.NewReader(payload))
	req.Header.Set("X-Identity-Signature", signIdentityPayload(payload, "whsec_test"))
	rec := httptest.NewRecorder()
	f.handlers.IdentityWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	user, err := f.users.Get(context.Background(), "user-9")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", user.Name)
	assert.Equal(t, "grace@example.com", user.Email)
}

func TestIdentityWebhook_RejectsBadSignature(t *testing.T) {
	f := newFixture()
	payload := []byte(`{"type":"user.created","data":{"id":"user-9"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/identity", bytes.NewReader(payload))
	req.Header.Set("X-Identity-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	f.handlers.IdentityWebhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.users.users)
}

func TestAddShow_CreatesShowPerTime(t *testing.T) {
	f := newFixture()
	first := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	second := first.Add(3 * time.Hour)

	body, err := json.Marshal(map[string]interface{}{
		"movie": map[string]interface{}{
			"id":    uuid.NewString(),
			"title": "Arrival",
		},
		"showDateTime": []time.Time{first, second},
		"showPrice":    200.0,
	})
	require.NoError(t, err)

	req := authedRequest(http.MethodPost, "/api/show/add", body, "admin-1")
	rec := httptest.NewRecorder()
	f.handlers.AddShow(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "Show added", envelope["message"])

	require.Len(t, f.shows.created, 2)
	assert.Equal(t, 200.0, f.shows.created[0].Price)
	assert.True(t, f.shows.created[0].StartAt.Equal(first))
	assert.True(t, f.shows.created[1].StartAt.Equal(second))

	require.Len(t, f.pub.keys, 1)
	assert.Equal(t, "show.added", f.pub.keys[0])
}

func TestAddShow_RejectsInvalidMovieID(t *testing.T) {
	f := newFixture()
	body, err := json.Marshal(map[string]interface{}{
		"movie": map[string]interface{}{
			"id":    "tmdb-603",
			"title": "The Matrix",
		},
		"showDateTime": []time.Time{time.Now().Add(24 * time.Hour)},
		"showPrice":    150.0,
	})
	require.NoError(t, err)

	req := authedRequest(http.MethodPost, "/api/show/add", body, "admin-1")
	rec := httptest.NewRecorder()
	f.handlers.AddShow(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "invalid movie id", envelope["message"])
	assert.Empty(t, f.movies.movies, "resubmitting a bad id must not mint a new movie")
	assert.Empty(t, f.shows.created)
}

func TestAddShow_RejectsMissingFields(t *testing.T) {
	f := newFixture()
	body := []byte(`{"movie":{"title":""},"showDateTime":[],"showPrice":0}`)

	req := authedRequest(http.MethodPost, "/api/show/add", body, "admin-1")
	rec := httptest.NewRecorder()
	f.handlers.AddShow(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.Empty(t, f.shows.created)
}

func TestAdminDashboard(t *testing.T) {
	f := newFixture()
	movie := domain.Movie{ID: uuid.New(), Title: "Dune"}
	f.movies.movies[movie.ID] = movie
	show := domain.Show{ID: uuid.New(), MovieID: movie.ID, StartAt: time.Now().Add(time.Hour), Price: 100}
	f.shows.shows[show.ID] = show

	paid := domain.Booking{ID: uuid.New(), ShowID: show.ID, Amount: 300, IsPaid: true}
	unpaid := domain.Booking{ID: uuid.New(), ShowID: show.ID, Amount: 100}
	f.bookings.bookings[paid.ID] = paid
	f.bookings.bookings[unpaid.ID] = unpaid
	f.users.users["user-1"] = domain.User{ID: "user-1"}
	f.users.users["user-2"] = domain.User{ID: "user-2"}

	req := authedRequest(http.MethodGet, "/api/admin/dashboard", nil, "admin-1")
	rec := httptest.NewRecorder()
	f.handlers.AdminDashboard(rec, req)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])
	dashboard := envelope["dashboardData"].(map[string]interface{})
	assert.Equal(t, 1.0, dashboard["totalBookings"])
	assert.Equal(t, 300.0, dashboard["totalRevenue"])
	assert.Equal(t, 2.0, dashboard["totalUser"])
	assert.Len(t, dashboard["activeShows"].([]interface{}), 1)
}

func TestAdminOnly(t *testing.T) {
	f := newFixture()
	f.users.users["admin-1"] = domain.User{ID: "admin-1", Role: domain.RoleAdmin}
	f.users.users["user-1"] = domain.User{ID: "user-1"}

	var reached bool
	guarded := f.handlers.AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/admin/shows", nil, "user-1"))
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.False(t, reached)

	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/admin/shows", nil, "admin-1"))
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}
