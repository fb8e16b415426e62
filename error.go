package treecol

import "errors"

// The error taxonomy shared across layers.  Lower layers define their own
// sentinels for what only they can detect (rbuf.ErrTruncated,
// rzip.ErrCorruptBlock, rzip.ErrUnsupportedCompression); the sentinels here
// cover schema and type resolution.  Errors bubble up unmodified with
// context wrapped on at each layer boundary so the final message names the
// failing class, column, and basket.
var (
	// ErrUnknownClass reports a schema lookup miss: no streamer info, no
	// built-in plan, and no custom handler for the class.
	ErrUnknownClass = errors.New("unknown class")

	// ErrUnsupportedType reports a declared type for which no
	// interpretation can be inferred.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnsupportedLayout reports a recognized but unhandled on-disk
	// layout, such as multiple inheritance.
	ErrUnsupportedLayout = errors.New("unsupported layout")
)
