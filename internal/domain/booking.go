package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewBooking builds an unpaid booking for the given seats. The amount is
// the show price times the seat count; the payment link is filled in once
// the checkout session exists.
func NewBooking(userID string, show Show, seats []string) Booking {
	return Booking{
		ID:        uuid.New(),
		UserID:    userID,
		ShowID:    show.ID,
		Seats:     seats,
		Amount:    show.Price * float64(len(seats)),
		CreatedAt: time.Now(),
	}
}
