package commission

import (
	"context"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// Rate is the photographer's share of every client payment.
	Rate = "0.50"
	// RateVersion is stored on each record so that a future rate change
	// never reinterprets historical splits.
	RateVersion = "2025-01"
)

var rate = decimal.RequireFromString(Rate)

// Split is the division of one payment between photographer and platform.
type Split struct {
	TotalCents        int64 `json:"total_cents"`
	PhotographerCents int64 `json:"photographer_cents"`
	PlatformCents     int64 `json:"platform_cents"`
}

// Valid reports whether the split conserves the total with no negative parts.
func (s Split) Valid() bool {
	return s.TotalCents >= 0 &&
		s.PhotographerCents >= 0 &&
		s.PlatformCents >= 0 &&
		s.PhotographerCents+s.PlatformCents == s.TotalCents
}

// PhotographerShare rounds amountCents*Rate half-up to whole cents.
// Negative amounts are treated as zero.
func PhotographerShare(amountCents int64) int64 {
	if amountCents <= 0 {
		if amountCents < 0 {
			slog.WarnContext(context.Background(), "negative payment amount treated as zero",
				slog.Int64("amount_cents", amountCents))
		}
		return 0
	}
	share := decimal.NewFromInt(amountCents).Mul(rate).Round(0).IntPart()
	return min(share, amountCents)
}

// ShareFromFloat accepts amounts from untrusted payloads. NaN, infinities and
// negatives yield zero; fractional cents are truncated before the split.
func ShareFromFloat(amountCents float64) int64 {
	if math.IsNaN(amountCents) || math.IsInf(amountCents, 0) || amountCents < 0 {
		slog.WarnContext(context.Background(), "malformed payment amount treated as zero",
			slog.Float64("amount_cents", amountCents))
		return 0
	}
	if amountCents > math.MaxInt64/2 {
		slog.WarnContext(context.Background(), "payment amount out of range treated as zero",
			slog.Float64("amount_cents", amountCents))
		return 0
	}
	return PhotographerShare(int64(amountCents))
}

// NewSplit computes the split for a payment. The platform share is the
// remainder and is never rounded on its own.
func NewSplit(amountCents int64) Split {
	total := max(amountCents, 0)
	photographer := PhotographerShare(total)
	return Split{
		TotalCents:        total,
		PhotographerCents: photographer,
		PlatformCents:     total - photographer,
	}
}
