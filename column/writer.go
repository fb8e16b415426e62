package column

import (
	"errors"
	"fmt"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/rbuf"
	"github.com/treecol/treecol/rzip"
)

// Writer packs serialized entries into baskets, producing the source image
// and column metadata the Reader consumes.  The codec applies per basket
// and may be changed between flushes; incompressible baskets fall back to
// being stored raw, which the key header records by its lengths.
type Writer struct {
	name     string
	typeName string
	interp   treecol.Interp
	scheme   treecol.OffsetScheme
	codec    rzip.Codec

	out     rbuf.Builder
	data    rbuf.Builder
	offsets []int64
	entries int64
	column  Column
}

func NewWriter(name, typeName string, in treecol.Interp, scheme treecol.OffsetScheme) *Writer {
	return &Writer{
		name:     name,
		typeName: typeName,
		interp:   in,
		scheme:   scheme,
		column:   Column{Name: name, TypeName: typeName},
	}
}

// SetCodec selects the compression for subsequently flushed baskets.  The
// empty codec stores baskets raw.
func (w *Writer) SetCodec(c rzip.Codec) { w.codec = c }

// Append adds one entry's serialized bytes to the open basket.
func (w *Writer) Append(entry []byte) {
	w.data.AppendBytes(entry)
	w.offsets = append(w.offsets, int64(w.data.Len()))
	w.entries++
}

// jagged reports whether the column needs a per-entry offset table.
func (w *Writer) jagged() bool { return w.interp.ItemSize() == 0 }

// Flush closes the open basket.  Flushing with no pending entries is a
// no-op.
func (w *Writer) Flush() error {
	n := len(w.offsets)
	if n == 0 {
		return nil
	}
	ref := BasketRef{
		Seek:       int64(w.out.Len()),
		EntryStart: w.entries - int64(n),
		Entries:    int64(n),
	}

	key := w.buildKey(n)
	keyLen := len(key)
	payload := append([]byte{}, w.data.Bytes()...)
	border := len(payload)
	switch {
	case !w.jagged():
	case w.scheme == treecol.TrailingOffsets:
		var t rbuf.Builder
		t.AppendI32(int32(n + 1))
		t.AppendI32(int32(keyLen))
		for _, off := range w.offsets[:n-1] {
			t.AppendI32(int32(off) + int32(keyLen))
		}
		payload = append(payload, t.Bytes()...)
	case w.scheme == treecol.SeparateOffsets:
		ref.Offsets = append([]int64{0}, w.offsets...)
	}

	stored := payload
	if w.codec != "" {
		compressed, err := rzip.Compress(w.codec, payload)
		switch {
		case errors.Is(err, rzip.ErrIncompressible):
		case err != nil:
			return fmt.Errorf("column %s: %w", w.name, err)
		case len(compressed) < len(payload):
			stored = compressed
		}
	}

	// Patch the lengths the key could not know while being built.
	patchI32(key, keyPosNBytes, int32(keyLen+len(stored)))
	patchI32(key, keyPosObjLen, int32(len(payload)))
	patchI16(key, keyPosKeyLen, int16(keyLen))
	patchI32(key, keyLen-5, int32(border+keyLen)) // fLast sits just before the flag byte

	w.out.AppendBytes(key)
	w.out.AppendBytes(stored)
	ref.NBytes = keyLen + len(stored)
	w.column.Baskets = append(w.column.Baskets, ref)
	w.column.Entries = w.entries

	w.data = rbuf.Builder{}
	w.offsets = w.offsets[:0]
	return nil
}

// buildKey lays out the basket key header with placeholder lengths.
func (w *Writer) buildKey(entries int) []byte {
	var b rbuf.Builder
	b.AppendI32(0) // fNbytes, patched
	b.AppendI16(keyVersion)
	b.AppendI32(0) // fObjlen, patched
	b.AppendU32(0) // timestamp
	b.AppendI16(0) // fKeylen, patched
	b.AppendI16(1) // cycle
	b.AppendI32(int32(w.out.Len()))
	b.AppendI32(0) // parent directory seek
	b.AppendString("TBasket")
	b.AppendString(w.name)
	b.AppendString(w.typeName)
	b.AppendI16(3)              // basket version
	b.AppendI32(32 * 1024)      // fBufferSize
	b.AppendI32(0)              // fNevBufSize
	b.AppendI32(int32(entries)) // fNevBuf
	b.AppendI32(0)              // fLast, patched
	b.AppendU8(0)               // flag
	return b.Bytes()
}

// Finish flushes the open basket and returns the column metadata with the
// assembled source image.
func (w *Writer) Finish() (*Column, []byte, error) {
	if err := w.Flush(); err != nil {
		return nil, nil, err
	}
	col := w.column
	return &col, w.out.Bytes(), nil
}

func patchI32(b []byte, pos int, v int32) {
	b[pos] = byte(v >> 24)
	b[pos+1] = byte(v >> 16)
	b[pos+2] = byte(v >> 8)
	b[pos+3] = byte(v)
}

func patchI16(b []byte, pos int, v int16) {
	b[pos] = byte(v >> 8)
	b[pos+1] = byte(v)
}
