// Package directory is the read side of users and photographers. Profile
// management lives elsewhere; this package only answers who someone is and
// where their payouts go.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrPhotographerNotFound = errors.New("photographer not found")
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Photographer struct {
	ID                     uuid.UUID `json:"id"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	StripeConnectAccountID string    `json:"stripe_connect_account_id,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// Directory looks up people by id.
type Directory interface {
	User(ctx context.Context, id uuid.UUID) (*User, error)
	Photographer(ctx context.Context, id uuid.UUID) (*Photographer, error)
	// PayoutDestination returns the photographer's connected account id or "".
	PayoutDestination(ctx context.Context, photographerID uuid.UUID) (string, error)
}
