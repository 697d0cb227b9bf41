package favourites

import (
	"context"

	"github.com/google/uuid"
	"github.com/rdanilin/cinebook/internal/domain"
)

type UserStore interface {
	Get(ctx context.Context, id string) (domain.User, error)
	ToggleFavourite(ctx context.Context, userID string, movieID uuid.UUID) (added bool, err error)
}

type MovieStore interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Movie, error)
}

type Service struct {
	users  UserStore
	movies MovieStore
}

func NewService(users UserStore, movies MovieStore) *Service {
	return &Service{users: users, movies: movies}
}

// Toggle flips the movie's membership in the user's favourites set and
// reports whether it ended up added. Toggling twice restores the set.
func (s *Service) Toggle(ctx context.Context, userID string, movieID uuid.UUID) (bool, error) {
	return s.users.ToggleFavourite(ctx, userID, movieID)
}

// List resolves the user's favourite movie ids into full movie records.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Movie, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.movies.ListByIDs(ctx, user.Favourites)
}
