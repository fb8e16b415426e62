// Package source provides the byte sources the engine reads baskets and
// schema records from.  A source is random-access: reads name an absolute
// offset and an exact length, and a short read is an error, never silent
// truncation.  Retry policy for transient failures belongs to the source,
// not to the decode layers above it.
package source

import (
	"context"
	"fmt"
	"io"

	"github.com/segmentio/ksuid"
)

// Range names one contiguous span of a source.
type Range struct {
	Off int64
	Len int
}

// Source is a random-access byte provider.  Implementations are safe for
// concurrent reads.
type Source interface {
	// ID identifies this open source for cache fingerprints.  Two opens
	// of the same underlying bytes get distinct IDs.
	ID() ksuid.KSUID
	Size() int64
	// ReadRange returns exactly n bytes starting at off.
	ReadRange(ctx context.Context, off int64, n int) ([]byte, error)
	// ReadRanges batches several reads into one call, returning the
	// spans in argument order.
	ReadRanges(ctx context.Context, ranges []Range) ([][]byte, error)
}

// Bytes serves reads from an in-memory buffer.
type Bytes struct {
	id  ksuid.KSUID
	buf []byte
}

var _ Source = (*Bytes)(nil)

func NewBytes(buf []byte) *Bytes {
	return &Bytes{id: ksuid.New(), buf: buf}
}

func (b *Bytes) ID() ksuid.KSUID { return b.id }

func (b *Bytes) Size() int64 { return int64(len(b.buf)) }

func (b *Bytes) ReadRange(ctx context.Context, off int64, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if off < 0 || n < 0 || off+int64(n) > int64(len(b.buf)) {
		return nil, fmt.Errorf("read of %d bytes at offset %d in source of %d bytes: %w",
			n, off, len(b.buf), io.ErrUnexpectedEOF)
	}
	return b.buf[off : off+int64(n)], nil
}

func (b *Bytes) ReadRanges(ctx context.Context, ranges []Range) ([][]byte, error) {
	return readSequential(ctx, b, ranges)
}

func readSequential(ctx context.Context, s Source, ranges []Range) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		b, err := s.ReadRange(ctx, r.Off, r.Len)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
