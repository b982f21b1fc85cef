package overlay

import "errors"

var (
	// ErrTombstoneDecode is returned when a tombstone blob is not a JSON object.
	ErrTombstoneDecode = errors.New("unable to decode tombstone set")

	// ErrTombstoneEncode is returned when a tombstone set cannot be serialized.
	ErrTombstoneEncode = errors.New("unable to encode tombstone set")

	// ErrListingConsumed is reported by Listing.Err when All is called on a
	// listing that has already been iterated.
	ErrListingConsumed = errors.New("listing already consumed")
)
