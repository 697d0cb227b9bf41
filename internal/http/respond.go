package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rdanilin/cinebook/internal/domain"
)

// Handlers answer with a {success: bool, ...} envelope and HTTP 200 even
// for declined requests; clients branch on the success flag, not the
// status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respond(w http.ResponseWriter, payload map[string]interface{}) {
	payload["success"] = true
	writeJSON(w, http.StatusOK, payload)
}

func decline(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

type moviePayload struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	PosterPath  string    `json:"posterPath"`
	ReleaseDate string    `json:"releaseDate"`
	Genres      []string  `json:"genres"`
	Runtime     int       `json:"runtime"`
}

type showPayload struct {
	ID       uuid.UUID    `json:"id"`
	Movie    moviePayload `json:"movie"`
	StartAt  time.Time    `json:"showDateTime"`
	Price    float64      `json:"showPrice"`
	Occupied int          `json:"occupiedCount"`
}

type bookingPayload struct {
	ID          uuid.UUID   `json:"id"`
	Show        showPayload `json:"show"`
	Seats       []string    `json:"bookedSeats"`
	Amount      float64     `json:"amount"`
	IsPaid      bool        `json:"isPaid"`
	PaymentLink string      `json:"paymentLink"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func toMoviePayload(m domain.Movie) moviePayload {
	return moviePayload{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		Genres:      m.Genres,
		Runtime:     m.Runtime,
	}
}

func toShowPayload(s domain.Show, m domain.Movie) showPayload {
	return showPayload{
		ID:       s.ID,
		Movie:    toMoviePayload(m),
		StartAt:  s.StartAt,
		Price:    s.Price,
		Occupied: len(s.OccupiedSeats),
	}
}

func toBookingPayload(b domain.Booking, s domain.Show, m domain.Movie) bookingPayload {
	return bookingPayload{
		ID:          b.ID,
		Show:        toShowPayload(s, m),
		Seats:       b.Seats,
		Amount:      b.Amount,
		IsPaid:      b.IsPaid,
		PaymentLink: b.PaymentLink,
		CreatedAt:   b.CreatedAt,
	}
}
