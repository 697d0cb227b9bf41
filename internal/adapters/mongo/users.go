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

type UserRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewUserRepository(db *mongo.Database, logger observability.Logger) *UserRepository {
	return &UserRepository{
		coll:   db.Collection("users"),
		logger: logger,
	}
}

type userDoc struct {
	ID         string      `bson:"_id"`
	Name       string      `bson:"name"`
	Email      string      `bson:"email"`
	Image      string      `bson:"image"`
	Role       string      `bson:"role"`
	Favourites []uuid.UUID `bson:"favourites"`
	UpdatedAt  time.Time   `bson:"updated_at"`
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:         d.ID,
		Name:       d.Name,
		Email:      d.Email,
		Image:      d.Image,
		Role:       d.Role,
		Favourites: d.Favourites,
	}
}

// Upsert mirrors an identity-provider record. Favourites and role are
// owned by this service, so lifecycle updates leave them alone.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{
			"$set": bson.M{
				"name":       user.Name,
				"email":      user.Email,
				"image":      user.Image,
				"updated_at": time.Now(),
			},
			"$setOnInsert": bson.M{
				"role":       "user",
				"favourites": []uuid.UUID{},
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.logger.WithError(err).Error("failed to upsert user")
		return err
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, errors.Wrap(err, "get user")
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return r.decodeAll(ctx, cur)
}

func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "list users by ids")
	}
	return r.decodeAll(ctx, cur)
}

// ToggleFavourite adds the movie to the user's favourites if absent,
// otherwise removes it. Both branches are single conditional updates, so
// concurrent toggles cannot lose each other's writes.
func (r *UserRepository) ToggleFavourite(ctx context.Context, userID string, movieID uuid.UUID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID, "favourites": bson.M{"$ne": movieID}},
		bson.M{"$addToSet": bson.M{"favourites": movieID}},
	)
	if err != nil {
		return false, errors.Wrap(err, "add favourite")
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	res, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": userID, "favourites": movieID},
		bson.M{"$pull": bson.M{"favourites": movieID}},
	)
	if err != nil {
		return false, errors.Wrap(err, "remove favourite")
	}
	if res.MatchedCount == 0 {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (r *UserRepository) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.User, error) {
	defer cur.Close(ctx)

	var users []domain.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, doc.toDomain())
	}
	return users, cur.Err()
}
