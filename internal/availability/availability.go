package availability

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rdanilin/cinebook/internal/domain"
	"github.com/rdanilin/cinebook/internal/observability"
)

type ShowGetter interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Show, error)
}

type Checker struct {
	shows  ShowGetter
	logger observability.Logger
}

func NewChecker(shows ShowGetter, logger observability.Logger) *Checker {
	return &Checker{shows: shows, logger: logger}
}

// Check reports whether every requested seat is free on the show. It fails
// closed: a missing show or any lookup error reads as unavailable.
func (c *Checker) Check(ctx context.Context, showID uuid.UUID, seats []string) bool {
	show, err := c.shows.Get(ctx, showID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.WithError(err).Error("availability check failed")
		}
		return false
	}
	for _, seat := range seats {
		if _, taken := show.OccupiedSeats[seat]; taken {
			return false
		}
	}
	return true
}
