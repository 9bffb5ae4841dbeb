package scale

import "errors"

var (
	// ErrTruncated is returned when fewer bytes remain in the input than
	// the shape being decoded requires.
	ErrTruncated = errors.New("scale: truncated input")

	// ErrUnknownVariant is returned when a variant's index byte does not
	// match any variant declared by the shape.
	ErrUnknownVariant = errors.New("scale: unknown variant index")

	// ErrNonCanonical is returned when a compact integer is encoded in a
	// larger mode than its value requires. Only minimal encodings are
	// accepted so that encode and decode are exact inverses.
	ErrNonCanonical = errors.New("scale: non-canonical compact encoding")

	// ErrBadShape is returned when a value does not fit the shape it is
	// being encoded against, or when the shape itself is malformed.
	ErrBadShape = errors.New("scale: value does not match shape")
)
