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

type ShowRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewShowRepository(db *mongo.Database, logger observability.Logger) *ShowRepository {
	return &ShowRepository{
		coll:   db.Collection("shows"),
		logger: logger,
	}
}

type showDoc struct {
	ID            uuid.UUID         `bson:"_id"`
	MovieID       uuid.UUID         `bson:"movie_id"`
	StartAt       time.Time         `bson:"start_at"`
	Price         float64           `bson:"price"`
	OccupiedSeats map[string]string `bson:"occupied_seats"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
}

func (d showDoc) toDomain() domain.Show {
	seats := d.OccupiedSeats
	if seats == nil {
		seats = map[string]string{}
	}
	return domain.Show{
		ID:            d.ID,
		MovieID:       d.MovieID,
		StartAt:       d.StartAt,
		Price:         d.Price,
		OccupiedSeats: seats,
	}
}

func (r *ShowRepository) Create(ctx context.Context, show domain.Show) error {
	now := time.Now()
	doc := showDoc{
		ID:            show.ID,
		MovieID:       show.MovieID,
		StartAt:       show.StartAt,
		Price:         show.Price,
		OccupiedSeats: map[string]string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		r.logger.WithError(err).Error("failed to create show")
		return err
	}
	return nil
}

func (r *ShowRepository) Get(ctx context.Context, id uuid.UUID) (domain.Show, error) {
	var doc showDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.Show{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Show{}, errors.Wrap(err, "get show")
	}
	return doc.toDomain(), nil
}

// HoldSeats marks every requested seat with the holder's user id in a
// single conditional update: the filter matches only while all requested
// seat keys are still absent, so two concurrent bookings for an
// overlapping seat set cannot both succeed.
func (r *ShowRepository) HoldSeats(ctx context.Context, showID uuid.UUID, seats []string, userID string) error {
	filter := bson.M{"_id": showID}
	set := bson.M{"updated_at": time.Now()}
	for _, seat := range seats {
		filter["occupied_seats."+seat] = bson.M{"$exists": false}
		set["occupied_seats."+seat] = userID
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "hold seats")
	}
	if res.MatchedCount == 0 {
		// Either the show vanished or another booking got there first.
		if _, err := r.Get(ctx, showID); errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return domain.ErrSeatsUnavailable
	}
	return nil
}

// ReleaseSeats removes the given seat keys from the show's occupied
// mapping. A missing show or already-absent seat is not an error so the
// expiry worker can re-run safely.
func (r *ShowRepository) ReleaseSeats(ctx context.Context, showID uuid.UUID, seats []string) error {
	unset := bson.M{}
	for _, seat := range seats {
		unset["occupied_seats."+seat] = ""
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": showID}, bson.M{
		"$unset": unset,
		"$set":   bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return errors.Wrap(err, "release seats")
	}
	return nil
}

func (r *ShowRepository) StartingBetween(ctx context.Context, from, to time.Time) ([]domain.Show, error) {
	cur, err := r.coll.Find(ctx, bson.M{
		"start_at": bson.M{"$gte": from, "$lte": to},
	}, options.Find().SetSort(bson.M{"start_at": 1}))
	if err != nil {
		return nil, errors.Wrap(err, "shows starting between")
	}
	return r.decodeAll(ctx, cur)
}

func (r *ShowRepository) Upcoming(ctx context.Context, now time.Time) ([]domain.Show, error) {
	cur, err := r.coll.Find(ctx, bson.M{
		"start_at": bson.M{"$gte": now},
	}, options.Find().SetSort(bson.M{"start_at": 1}))
	if err != nil {
		return nil, errors.Wrap(err, "upcoming shows")
	}
	return r.decodeAll(ctx, cur)
}

func (r *ShowRepository) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.Show, error) {
	defer cur.Close(ctx)

	var shows []domain.Show
	for cur.Next(ctx) {
		var doc showDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		shows = append(shows, doc.toDomain())
	}
	return shows, cur.Err()
}
