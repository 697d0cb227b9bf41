package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rdanilin/cinebook/internal/domain"
	"github.com/rdanilin/cinebook/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MovieRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewMovieRepository(db *mongo.Database, logger observability.Logger) *MovieRepository {
	return &MovieRepository{
		coll:   db.Collection("movies"),
		logger: logger,
	}
}

type movieDoc struct {
	ID          uuid.UUID `bson:"_id"`
	Title       string    `bson:"title"`
	Overview    string    `bson:"overview"`
	PosterPath  string    `bson:"poster_path"`
	ReleaseDate string    `bson:"release_date"`
	Genres      []string  `bson:"genres"`
	Runtime     int       `bson:"runtime"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d movieDoc) toDomain() domain.Movie {
	return domain.Movie{
		ID:          d.ID,
		Title:       d.Title,
		Overview:    d.Overview,
		PosterPath:  d.PosterPath,
		ReleaseDate: d.ReleaseDate,
		Genres:      d.Genres,
		Runtime:     d.Runtime,
	}
}

func (r *MovieRepository) Upsert(ctx context.Context, movie domain.Movie) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": movie.ID},
		bson.M{"$set": bson.M{
			"title":        movie.Title,
			"overview":     movie.Overview,
			"poster_path":  movie.PosterPath,
			"release_date": movie.ReleaseDate,
			"genres":       movie.Genres,
			"runtime":      movie.Runtime,
			"updated_at":   time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.logger.WithError(err).Error("failed to upsert movie")
		return err
	}
	return nil
}

func (r *MovieRepository) Get(ctx context.Context, id uuid.UUID) (domain.Movie, error) {
	var doc movieDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.Movie{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Movie{}, errors.Wrap(err, "get movie")
	}
	return doc.toDomain(), nil
}

func (r *MovieRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "list movies by ids")
	}
	return r.decodeAll(ctx, cur)
}

func (r *MovieRepository) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.Movie, error) {
	defer cur.Close(ctx)

	var movies []domain.Movie
	for cur.Next(ctx) {
		var doc movieDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		movies = append(movies, doc.toDomain())
	}
	return movies, cur.Err()
}
