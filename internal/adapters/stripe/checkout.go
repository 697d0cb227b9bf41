package stripe

import (
	"context"
	"time"

	"github.com/google/uuid"
	stripesdk "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// MetadataBookingID is the correlation key carried on every checkout
// session so the webhook can find its booking.
const MetadataBookingID = "booking_id"

type CheckoutClient struct {
	webhookSecret string
}

func NewCheckoutClient(secretKey, webhookSecret string) *CheckoutClient {
	stripesdk.Key = secretKey
	return &CheckoutClient{webhookSecret: webhookSecret}
}

type SessionParams struct {
	BookingID   uuid.UUID
	ProductName string
	Amount      float64
	Origin      string
	ExpiresIn   time.Duration
}

// CreateSession creates a redirect-based checkout session for the booking
// amount and returns its URL. Success and cancel targets are derived from
// the requesting page's origin.
func (c *CheckoutClient) CreateSession(ctx context.Context, p SessionParams) (string, error) {
	params := &stripesdk.CheckoutSessionParams{
		Mode:       stripesdk.String(string(stripesdk.CheckoutSessionModePayment)),
		SuccessURL: stripesdk.String(p.Origin + "/loading/my-bookings"),
		CancelURL:  stripesdk.String(p.Origin + "/my-bookings"),
		LineItems: []*stripesdk.CheckoutSessionLineItemParams{{
			PriceData: &stripesdk.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripesdk.String("usd"),
				UnitAmount: stripesdk.Int64(int64(p.Amount * 100)),
				ProductData: &stripesdk.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripesdk.String(p.ProductName),
				},
			},
			Quantity: stripesdk.Int64(1),
		}},
		ExpiresAt: stripesdk.Int64(time.Now().Add(p.ExpiresIn).Unix()),
	}
	params.Context = ctx
	params.AddMetadata(MetadataBookingID, p.BookingID.String())

	s, err := session.New(params)
	if err != nil {
		return "", err
	}
	return s.URL, nil
}

// ParseEvent verifies the webhook signature and returns the decoded event.
func (c *CheckoutClient) ParseEvent(payload []byte, sigHeader string) (stripesdk.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
}
