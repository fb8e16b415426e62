package source

import (
	"context"
	"fmt"
	"os"

	"github.com/segmentio/ksuid"
)

// File serves reads from a local file via ReadAt, so concurrent reads need
// no seek coordination.
type File struct {
	id   ksuid.KSUID
	f    *os.File
	size int64
}

var _ Source = (*File)(nil)

func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{id: ksuid.New(), f: f, size: info.Size()}, nil
}

func (f *File) ID() ksuid.KSUID { return f.id }

func (f *File) Size() int64 { return f.size }

func (f *File) Close() error { return f.f.Close() }

func (f *File) ReadRange(ctx context.Context, off int64, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := f.f.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("%s: read of %d bytes at offset %d: %w",
			f.f.Name(), n, off, err)
	}
	return buf, nil
}

func (f *File) ReadRanges(ctx context.Context, ranges []Range) ([][]byte, error) {
	return readSequential(ctx, f, ranges)
}
