// Package family manages secondary members of a client account and the
// takeover of billing responsibility by one of them.
package family

import (
	"time"

	"github.com/google/uuid"
)

type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberAccepted MemberStatus = "accepted"
	MemberRevoked  MemberStatus = "revoked"
)

// TakeoverType records why billing moved to a secondary member.
type TakeoverType string

const (
	// TakeoverDelinquent is a takeover of an account in grace or suspended.
	TakeoverDelinquent TakeoverType = "delinquent"
	// TakeoverVoluntary is a takeover of an account in good standing.
	TakeoverVoluntary TakeoverType = "voluntary"
)

// Member is a secondary user attached to a primary account. At most one
// member per account is the billing payer; when none is, the primary
// account holder pays.
type Member struct {
	ID                 uuid.UUID    `json:"id"`
	AccountID          uuid.UUID    `json:"account_id"`
	SecondaryUserID    uuid.UUID    `json:"secondary_user_id"`
	Status             MemberStatus `json:"status"`
	IsBillingPayer     bool         `json:"is_billing_payer"`
	ProviderCustomerID string       `json:"-"`
	BecamePayerAt      *time.Time   `json:"became_payer_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Eligibility answers whether a member may take over billing right now.
type Eligibility struct {
	Eligible         bool         `json:"eligible"`
	Reason           string       `json:"reason,omitempty"`
	CurrentPayerName string       `json:"current_payer_name,omitempty"`
	MonthsOverdue    int          `json:"months_overdue"`
	GalleryCount     int          `json:"gallery_count"`
	TakeoverType     TakeoverType `json:"takeover_type,omitempty"`
	AccountStatus    string       `json:"account_status"`
}

// Ineligibility reasons.
const (
	ReasonNotMember       = "not_family_member"
	ReasonNotAccepted     = "invitation_not_accepted"
	ReasonAlreadyTaken    = "already_taken_over"
	ReasonAlreadyPayer    = "already_billing_payer"
	ReasonOwnAccount      = "own_account"
	ReasonAccountNotFound = "account_not_found"
)

// StartRequest asks for a takeover checkout.
type StartRequest struct {
	AccountID uuid.UUID
	UserID    uuid.UUID
}

// Completion is the confirmed payment that finalises a takeover.
type Completion struct {
	AccountID      uuid.UUID
	MemberID       uuid.UUID
	CustomerID     string
	SubscriptionID string
	TakeoverType   TakeoverType
	PaidAt         time.Time
}
