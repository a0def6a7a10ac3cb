package gallery

import "errors"

var (
	ErrNotFound            = errors.New("gallery not found")
	ErrAlreadyIncorporated = errors.New("gallery already incorporated into this account")
	ErrNoOwnAccount        = errors.New("caller has no account of their own")
	ErrNotEligible         = errors.New("caller may not incorporate these galleries")
	ErrNothingIncorporated = errors.New("no gallery could be incorporated")
	ErrNoGalleries         = errors.New("no galleries requested")
	ErrTooManyGalleries    = errors.New("too many galleries requested")
	ErrFailedToCopyGallery = errors.New("failed to copy gallery")
	ErrNotShared           = errors.New("gallery is not shared with family")
	ErrMembershipRevoked   = errors.New("caller is no longer an accepted member of the source account")
)
