// Package column implements the basket model and the deserialization
// engine: locating the baskets that overlap an entry range, fetching and
// decompressing them in parallel, decoding each per the column's
// interpretation, and assembling one result in entry order.  The writer
// half packs entries back into baskets, closing the round trip.
package column

import (
	"fmt"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/rbuf"
	"github.com/treecol/treecol/rzip"
)

// BasketRef locates one basket within a source and names the entries it
// holds.  For the separate-offsets layout, Offsets carries the basket's
// per-entry byte offsets; the trailing layout stores them inside the
// basket itself.
type BasketRef struct {
	Seek       int64
	NBytes     int
	EntryStart int64
	Entries    int64
	Offsets    []int64
}

// Column is the metadata the engine needs to read one column: its declared
// type and its baskets in ascending entry order.
type Column struct {
	Name     string
	TypeName string
	Entries  int64
	Baskets  []BasketRef
}

// basket is one parsed, decompressed basket.
type basket struct {
	objLen  int
	keyLen  int
	border  int
	entries int
	data    []byte  // payload bytes up to the border
	offsets []int64 // per-entry data offsets, nil for fixed-size layouts
}

// key header field positions, patched after the variable-length names are
// appended.
const (
	keyPosNBytes = 0
	keyPosObjLen = 6
	keyPosKeyLen = 14
	keyVersion   = 4
)

// parseBasket decodes a basket's key header and payload from its raw
// bytes, decompressing when the key says the payload is compressed.
func parseBasket(raw []byte, ref BasketRef, scheme treecol.OffsetScheme) (*basket, error) {
	c := rbuf.New(raw)
	nbytes, err := c.ReadI32()
	if err != nil {
		return nil, err
	}
	if int(nbytes) != len(raw) {
		return nil, fmt.Errorf("key declares %d bytes, basket has %d", nbytes, len(raw))
	}
	if _, err := c.ReadI16(); err != nil { // key version
		return nil, err
	}
	objLen, err := c.ReadI32()
	if err != nil {
		return nil, err
	}
	if err := c.Skip(4); err != nil { // timestamp
		return nil, err
	}
	keyLen, err := c.ReadI16()
	if err != nil {
		return nil, err
	}
	if err := c.Skip(2 + 4 + 4); err != nil { // cycle, seek, parent seek
		return nil, err
	}
	for i := 0; i < 3; i++ { // class name, name, title
		if _, err := c.String(); err != nil {
			return nil, err
		}
	}
	if _, err := c.ReadI16(); err != nil { // basket version
		return nil, err
	}
	if err := c.Skip(4 + 4); err != nil { // buffer size, entry buffer size
		return nil, err
	}
	nevBuf, err := c.ReadI32()
	if err != nil {
		return nil, err
	}
	last, err := c.ReadI32()
	if err != nil {
		return nil, err
	}
	if _, err := c.ReadU8(); err != nil { // flag
		return nil, err
	}
	// The length fields came off disk; bound them before they index
	// anything.
	if int(keyLen) < c.Pos() || int(keyLen) > len(raw) {
		return nil, fmt.Errorf("key length %d outside basket of %d bytes", keyLen, len(raw))
	}
	if objLen < 0 {
		return nil, fmt.Errorf("negative object length %d", objLen)
	}
	if nevBuf < 0 {
		return nil, fmt.Errorf("negative entry count %d", nevBuf)
	}

	payload := raw[keyLen:]
	if len(payload) != int(objLen) {
		// Compressed payloads decompress to exactly objLen bytes.
		if payload, err = rzip.Decompress(payload, int(objLen)); err != nil {
			return nil, err
		}
	}
	b := &basket{
		objLen:  int(objLen),
		keyLen:  int(keyLen),
		border:  int(last - int32(keyLen)),
		entries: int(nevBuf),
		offsets: ref.Offsets,
	}
	if b.border < 0 || b.border > len(payload) {
		return nil, fmt.Errorf("data border %d outside payload of %d bytes", b.border, len(payload))
	}
	b.data = payload[:b.border]
	if scheme == treecol.TrailingOffsets && b.border < len(payload) {
		if b.offsets, err = trailingOffsets(payload, b.border, b.entries, int(keyLen)); err != nil {
			return nil, err
		}
	}
	if b.offsets != nil {
		if err := checkOffsets(b.offsets, b.entries, b.border); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// checkOffsets validates an offset table, whichever layout it came from:
// one offset per entry plus the end, non-negative, non-decreasing, and
// within the data border.
func checkOffsets(offsets []int64, entries, border int) error {
	if len(offsets) != entries+1 {
		return fmt.Errorf("%d offsets for %d entries", len(offsets), entries)
	}
	for i, off := range offsets {
		if off < 0 || (i > 0 && off < offsets[i-1]) {
			return fmt.Errorf("offset table not non-decreasing at entry %d", i)
		}
	}
	if offsets[entries] > int64(border) {
		return fmt.Errorf("final offset %d past data border %d", offsets[entries], border)
	}
	return nil
}

// trailingOffsets reads the offset table appended after the data border:
// a 4-byte count word, then one key-relative offset per entry.  The final
// offset is the border itself.
func trailingOffsets(payload []byte, border, entries, keyLen int) ([]int64, error) {
	c := rbuf.NewAt(payload, border)
	if err := c.Skip(4); err != nil {
		return nil, err
	}
	raw, err := c.ReadI32Array(entries)
	if err != nil {
		return nil, err
	}
	offsets := make([]int64, entries+1)
	for i, off := range raw {
		offsets[i] = int64(off) - int64(keyLen)
	}
	offsets[entries] = int64(border)
	return offsets, nil
}

// entryBytes slices one entry's bytes out of the basket data.
func (b *basket) entryBytes(i int) ([]byte, error) {
	if b.offsets == nil {
		return nil, fmt.Errorf("basket has no offset table")
	}
	lo, hi := b.offsets[i], b.offsets[i+1]
	if hi > int64(len(b.data)) {
		return nil, fmt.Errorf("entry %d ends at %d, past %d data bytes: %w",
			i, hi, len(b.data), rbuf.ErrTruncated)
	}
	return b.data[lo:hi], nil
}
