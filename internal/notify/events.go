package notify

import "github.com/google/uuid"

type BookingPaidEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
}

type ShowAddedEvent struct {
	MovieTitle string `json:"movie_title"`
}
