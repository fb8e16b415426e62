package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesReadRange(t *testing.T) {
	src := NewBytes([]byte("0123456789"))
	ctx := context.Background()

	b, err := src.ReadRange(ctx, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("2345"), b)

	_, err = src.ReadRange(ctx, 8, 4)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = src.ReadRange(ctx, -1, 1)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestBytesReadRanges(t *testing.T) {
	src := NewBytes([]byte("0123456789"))
	got, err := src.ReadRanges(context.Background(), []Range{{0, 3}, {7, 3}, {5, 0}})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []byte("012"), got[0])
	assert.Equal(t, []byte("789"), got[1])
	assert.Empty(t, got[2])
}

func TestDistinctIDs(t *testing.T) {
	buf := []byte("same bytes")
	assert.NotEqual(t, NewBytes(buf).ID(), NewBytes(buf).ID())
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBytes([]byte("x")).ReadRange(ctx, 0, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(11), f.Size())
	b, err := f.ReadRange(context.Background(), 6, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), b)

	_, err = f.ReadRange(context.Background(), 6, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 6")
}
