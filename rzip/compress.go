package rzip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

const maxBlockSize = 0xffffff

// ErrIncompressible reports that the codec could not shrink the input.
// Callers store such buffers uncompressed instead.
var ErrIncompressible = errors.New("incompressible input")

// Compress encodes src as a single compressed block with the given codec's
// header framing.  Buffers larger than the 3-byte size fields allow must be
// split by the caller; basket payloads never approach that bound in
// practice.
func Compress(codec Codec, src []byte) ([]byte, error) {
	if len(src) > maxBlockSize {
		return nil, fmt.Errorf("%d-byte buffer exceeds single-block limit %d", len(src), maxBlockSize)
	}
	var payload []byte
	switch codec {
	case Zlib:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(src); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		payload = buf.Bytes()
	case LZMA:
		var buf bytes.Buffer
		xw, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := xw.Write(src); err != nil {
			return nil, err
		}
		if err := xw.Close(); err != nil {
			return nil, err
		}
		payload = buf.Bytes()
	case LZ4:
		block := make([]byte, lz4.CompressBlockBound(len(src)))
		var c lz4.Compressor
		n, err := c.CompressBlock(src, block)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("lz4: %d-byte buffer: %w", len(src), ErrIncompressible)
		}
		block = block[:n]
		payload = make([]byte, 8, 8+len(block))
		binary.BigEndian.PutUint64(payload, xxhash.Sum64(block))
		payload = append(payload, block...)
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		payload = enc.EncodeAll(src, nil)
		enc.Close()
	default:
		return nil, fmt.Errorf("codec tag %q: %w", codec, ErrUnsupportedCompression)
	}
	if len(payload) > maxBlockSize {
		return nil, fmt.Errorf("%d-byte compressed payload exceeds block limit %d", len(payload), maxBlockSize)
	}
	out := make([]byte, HeaderSize, HeaderSize+len(payload))
	copy(out, codec)
	out[2] = 1 // method/level byte, informational
	putSize3(out[3:], len(payload))
	putSize3(out[6:], len(src))
	return append(out, payload...), nil
}

func putSize3(b []byte, v int) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
