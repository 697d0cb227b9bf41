package domain

import (
	"time"

	"github.com/google/uuid"
)

const RoleAdmin = "admin"

// User mirrors the identity provider's record. The ID is the provider's
// opaque string identifier, not something we mint ourselves.
type User struct {
	ID         string
	Name       string
	Email      string
	Image      string
	Role       string
	Favourites []uuid.UUID
}

type Movie struct {
	ID          uuid.UUID
	Title       string
	Overview    string
	PosterPath  string
	ReleaseDate string
	Genres      []string
	Runtime     int
}

// Show maps seat labels to the user currently holding or owning them.
// A label absent from OccupiedSeats is free.
type Show struct {
	ID            uuid.UUID
	MovieID       uuid.UUID
	StartAt       time.Time
	Price         float64
	OccupiedSeats map[string]string
}

type Booking struct {
	ID          uuid.UUID
	UserID      string
	ShowID      uuid.UUID
	Seats       []string
	Amount      float64
	IsPaid      bool
	PaymentLink string
	CreatedAt   time.Time
}
