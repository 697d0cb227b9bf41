package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rdanilin/cinebook/internal/adapters/rabbit"
	"github.com/rdanilin/cinebook/internal/domain"
	"github.com/rdanilin/cinebook/internal/notify"
)

type addShowRequest struct {
	Movie struct {
		ID          string   `json:"id"`
		Title       string   `json:"title"`
		Overview    string   `json:"overview"`
		PosterPath  string   `json:"posterPath"`
		ReleaseDate string   `json:"releaseDate"`
		Genres      []string `json:"genres"`
		Runtime     int      `json:"runtime"`
	} `json:"movie"`
	ShowDateTime []time.Time `json:"showDateTime"`
	ShowPrice    float64     `json:"showPrice"`
}

// AddShow upserts the movie and creates one show per requested start
// time, then announces the title to subscribers.
func (h *Handlers) AddShow(w http.ResponseWriter, r *http.Request) {
	var req addShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decline(w, "invalid request body")
		return
	}
	if req.Movie.Title == "" || len(req.ShowDateTime) == 0 || req.ShowPrice <= 0 {
		decline(w, "movie title, show times and a positive price are required")
		return
	}

	// Minting a fresh id here would duplicate the movie document on every
	// resubmission of the same catalog entry.
	movieID, err := uuid.Parse(req.Movie.ID)
	if err != nil {
		decline(w, "invalid movie id")
		return
	}
	movie := domain.Movie{
		ID:          movieID,
		Title:       req.Movie.Title,
		Overview:    req.Movie.Overview,
		PosterPath:  req.Movie.PosterPath,
		ReleaseDate: req.Movie.ReleaseDate,
		Genres:      req.Movie.Genres,
		Runtime:     req.Movie.Runtime,
	}
	if err := h.movies.Upsert(r.Context(), movie); err != nil {
		h.logger.WithError(err).Error("failed to upsert movie")
		decline(w, err.Error())
		return
	}

	for _, startAt := range req.ShowDateTime {
		show := domain.Show{
			ID:            uuid.New(),
			MovieID:       movie.ID,
			StartAt:       startAt,
			Price:         req.ShowPrice,
			OccupiedSeats: map[string]string{},
		}
		if err := h.shows.Create(r.Context(), show); err != nil {
			h.logger.WithError(err).Error("failed to create show")
			decline(w, err.Error())
			return
		}
	}

	if err := h.pub.PublishJSON(r.Context(), rabbit.KeyShowAdded, notify.ShowAddedEvent{MovieTitle: movie.Title}); err != nil {
		h.logger.WithError(err).Error("failed to publish show.added")
	}
	respond(w, map[string]interface{}{"message": "Show added"})
}

func (h *Handlers) AllShows(w http.ResponseWriter, r *http.Request) {
	shows, err := h.shows.Upcoming(r.Context(), time.Now())
	if err != nil {
		h.logger.WithError(err).Error("failed to list shows")
		decline(w, err.Error())
		return
	}
	respond(w, map[string]interface{}{"shows": h.joinShows(r, shows)})
}

func (h *Handlers) GetShow(w http.ResponseWriter, r *http.Request) {
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
		decline(w, err.Error())
		return
	}
	movie, err := h.movies.Get(r.Context(), show.MovieID)
	if err != nil {
		decline(w, err.Error())
		return
	}
	respond(w, map[string]interface{}{"show": toShowPayload(show, movie)})
}

func (h *Handlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.ListAll(r.Context())
	if err != nil {
		decline(w, err.Error())
		return
	}
	paidCount := 0
	revenue := 0.0
	for _, b := range bookings {
		if b.IsPaid {
			paidCount++
			revenue += b.Amount
		}
	}

	shows, err := h.shows.Upcoming(r.Context(), time.Now())
	if err != nil {
		decline(w, err.Error())
		return
	}
	users, err := h.users.List(r.Context())
	if err != nil {
		decline(w, err.Error())
		return
	}

	respond(w, map[string]interface{}{
		"dashboardData": map[string]interface{}{
			"totalBookings": paidCount,
			"totalRevenue":  revenue,
			"activeShows":   h.joinShows(r, shows),
			"totalUser":     len(users),
		},
	})
}

func (h *Handlers) AdminBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.ListAll(r.Context())
	if err != nil {
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

func (h *Handlers) AdminShows(w http.ResponseWriter, r *http.Request) {
	shows, err := h.shows.Upcoming(r.Context(), time.Now())
	if err != nil {
		decline(w, err.Error())
		return
	}
	respond(w, map[string]interface{}{"shows": h.joinShows(r, shows)})
}

func (h *Handlers) joinShows(r *http.Request, shows []domain.Show) []showPayload {
	payloads := make([]showPayload, 0, len(shows))
	for _, s := range shows {
		movie, err := h.movies.Get(r.Context(), s.MovieID)
		if err != nil {
			continue
		}
		payloads = append(payloads, toShowPayload(s, movie))
	}
	return payloads
}
