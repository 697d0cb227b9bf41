package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rdanilin/cinebook/internal/domain"
	"github.com/rdanilin/cinebook/internal/observability"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

type UserStore interface {
	Upsert(ctx context.Context, user domain.User) error
	Delete(ctx context.Context, id string) error
}

// UserEvent is the identity provider's lifecycle webhook payload.
type UserEvent struct {
	Type string        `json:"type"`
	Data UserEventData `json:"data"`
}

type UserEventData struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

type Syncer struct {
	users  UserStore
	logger observability.Logger
}

func NewSyncer(users UserStore, logger observability.Logger) *Syncer {
	return &Syncer{users: users, logger: logger}
}

// Handle mirrors an identity lifecycle event into the users collection.
// Unknown event types are ignored.
func (s *Syncer) Handle(ctx context.Context, ev UserEvent) error {
	switch ev.Type {
	case EventUserCreated, EventUserUpdated:
		return s.users.Upsert(ctx, userFromEvent(ev.Data))
	case EventUserDeleted:
		err := s.users.Delete(ctx, ev.Data.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	default:
		s.logger.WithField("type", ev.Type).Debug("ignoring identity event")
		return nil
	}
}

func userFromEvent(data UserEventData) domain.User {
	email := ""
	if len(data.EmailAddresses) > 0 {
		email = data.EmailAddresses[0].EmailAddress
	}
	return domain.User{
		ID:    data.ID,
		Name:  strings.TrimSpace(data.FirstName + " " + data.LastName),
		Email: email,
		Image: data.ImageURL,
	}
}

// VerifySignature checks the hex HMAC-SHA256 signature the identity
// provider attaches to webhook deliveries.
func VerifySignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
