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

type BookingRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewBookingRepository(db *mongo.Database, logger observability.Logger) *BookingRepository {
	return &BookingRepository{
		coll:   db.Collection("bookings"),
		logger: logger,
	}
}

type bookingDoc struct {
	ID          uuid.UUID `bson:"_id"`
	UserID      string    `bson:"user_id"`
	ShowID      uuid.UUID `bson:"show_id"`
	Seats       []string  `bson:"seats"`
	Amount      float64   `bson:"amount"`
	IsPaid      bool      `bson:"is_paid"`
	PaymentLink string    `bson:"payment_link"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d bookingDoc) toDomain() domain.Booking {
	return domain.Booking{
		ID:          d.ID,
		UserID:      d.UserID,
		ShowID:      d.ShowID,
		Seats:       d.Seats,
		Amount:      d.Amount,
		IsPaid:      d.IsPaid,
		PaymentLink: d.PaymentLink,
		CreatedAt:   d.CreatedAt,
	}
}

func fromDomainBooking(b domain.Booking) bookingDoc {
	return bookingDoc{
		ID:          b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		Seats:       b.Seats,
		Amount:      b.Amount,
		IsPaid:      b.IsPaid,
		PaymentLink: b.PaymentLink,
		CreatedAt:   b.CreatedAt,
	}
}

func (r *BookingRepository) Create(ctx context.Context, booking domain.Booking) error {
	_, err := r.coll.InsertOne(ctx, fromDomainBooking(booking))
	if err != nil {
		r.logger.WithError(err).Error("failed to create booking")
		return err
	}
	return nil
}

func (r *BookingRepository) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var doc bookingDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, errors.Wrap(err, "get booking")
	}
	return doc.toDomain(), nil
}

func (r *BookingRepository) SetPaymentLink(ctx context.Context, id uuid.UUID, url string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"payment_link": url}})
	if err != nil {
		return errors.Wrap(err, "set payment link")
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_paid": true, "payment_link": ""},
	})
	if err != nil {
		return errors.Wrap(err, "mark booking paid")
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete booking")
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	return r.decodeAll(ctx, cur)
}

func (r *BookingRepository) ListAll(ctx context.Context) ([]domain.Booking, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, errors.Wrap(err, "list all bookings")
	}
	return r.decodeAll(ctx, cur)
}

// UnpaidCreatedBefore returns bookings whose soft hold has outlived the
// cutoff without payment. The expiry worker polls this.
func (r *BookingRepository) UnpaidCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	cur, err := r.coll.Find(ctx, bson.M{
		"is_paid":    false,
		"created_at": bson.M{"$lte": cutoff},
	})
	if err != nil {
		return nil, errors.Wrap(err, "unpaid bookings")
	}
	return r.decodeAll(ctx, cur)
}

func (r *BookingRepository) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.Booking, error) {
	defer cur.Close(ctx)

	var bookings []domain.Booking
	for cur.Next(ctx) {
		var doc bookingDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		bookings = append(bookings, doc.toDomain())
	}
	return bookings, cur.Err()
}
