// Package gallery holds gallery records and copies family-shared galleries
// into a secondary member's own account.
package gallery

import (
	"time"

	"github.com/google/uuid"
)

// MaxBatch caps how many galleries one incorporation request may name.
const MaxBatch = 50

type Gallery struct {
	ID             uuid.UUID  `json:"id"`
	AccountID      uuid.UUID  `json:"account_id"`
	PhotographerID *uuid.UUID `json:"photographer_id,omitempty"`
	Title          string     `json:"title"`
	FamilyShared   bool       `json:"family_shared"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Photo is photo metadata. StorageKey points at the stored media, which is
// shared between a gallery and its copies.
type Photo struct {
	ID         uuid.UUID `json:"id"`
	GalleryID  uuid.UUID `json:"gallery_id"`
	StorageKey string    `json:"storage_key"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// Incorporation links a source gallery to its copy in another account.
type Incorporation struct {
	ID                   uuid.UUID `json:"id"`
	SourceGalleryID      uuid.UUID `json:"source_gallery_id"`
	DestinationGalleryID uuid.UUID `json:"destination_gallery_id"`
	DestinationAccountID uuid.UUID `json:"destination_account_id"`
	IncorporatedBy       uuid.UUID `json:"incorporated_by"`
	CreatedAt            time.Time `json:"created_at"`
}

type Outcome string

const (
	OutcomeIncorporated        Outcome = "incorporated"
	OutcomeAlreadyIncorporated Outcome = "already_incorporated"
	OutcomeFailed              Outcome = "failed"
)

type Item struct {
	SourceGalleryID      uuid.UUID  `json:"source_gallery_id"`
	DestinationGalleryID *uuid.UUID `json:"destination_gallery_id,omitempty"`
	Outcome              Outcome    `json:"outcome"`
	Reason               string     `json:"reason,omitempty"`
	PhotoCount           int        `json:"photo_count,omitempty"`
}

// Result is the per-gallery tally of one incorporation request.
type Result struct {
	DestinationAccountID uuid.UUID `json:"destination_account_id"`
	Incorporated         int       `json:"incorporated"`
	AlreadyIncorporated  int       `json:"already_incorporated"`
	Failed               int       `json:"failed"`
	Items                []Item    `json:"items"`
}

func (r *Result) add(it Item) {
	switch it.Outcome {
	case OutcomeIncorporated:
		r.Incorporated++
	case OutcomeAlreadyIncorporated:
		r.AlreadyIncorporated++
	case OutcomeFailed:
		r.Failed++
	}
	r.Items = append(r.Items, it)
}
