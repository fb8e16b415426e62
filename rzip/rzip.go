// Package rzip implements the per-block compression layer.  A compressed
// buffer is a sequence of back-to-back blocks, each prefixed by a 9-byte
// header: a 2-byte ASCII codec tag, one method/level byte, a 3-byte
// compressed size and a 3-byte uncompressed size (both low byte first).
// LZ4 blocks carry an additional 8-byte big-endian xxhash64 checksum of the
// compressed payload, counted inside the header's compressed size.
//
// The codec is read fresh from every block header; blocks of one buffer may
// mix codecs.  Decompression validates the declared uncompressed size and
// the LZ4 checksum and never returns partial data.
package rzip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

var (
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrCorruptBlock           = errors.New("corrupt compressed block")
)

const HeaderSize = 9

// Codec identifies a block compression algorithm by its 2-byte header tag.
type Codec string

const (
	Zlib   Codec = "ZL"
	LZMA   Codec = "XZ"
	LZ4    Codec = "L4"
	Zstd   Codec = "ZS"
	Legacy Codec = "CS" // recognized but not supported
)

var zstdDecoder *zstd.Decoder

func init() {
	z, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	zstdDecoder = z
}

// Decompress decodes a sequence of compressed blocks into exactly
// uncompressed bytes.  It fails with ErrUnsupportedCompression on an
// unrecognized or legacy codec tag and with ErrCorruptBlock when a checksum
// or a declared size does not hold.
func Decompress(src []byte, uncompressed int) ([]byte, error) {
	out := make([]byte, 0, uncompressed)
	for block := 0; len(out) < uncompressed; block++ {
		if len(src) < HeaderSize {
			return nil, fmt.Errorf("block %d: %d-byte header in %d remaining bytes: %w",
				block, HeaderSize, len(src), ErrCorruptBlock)
		}
		tag := Codec(src[:2])
		csize := int(src[3]) | int(src[4])<<8 | int(src[5])<<16
		usize := int(src[6]) | int(src[7])<<8 | int(src[8])<<16
		src = src[HeaderSize:]
		if csize > len(src) {
			return nil, fmt.Errorf("block %d: compressed size %d exceeds %d remaining bytes: %w",
				block, csize, len(src), ErrCorruptBlock)
		}
		payload := src[:csize]
		src = src[csize:]
		piece, err := decompressBlock(tag, payload, usize)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", block, err)
		}
		if len(piece) != usize {
			return nil, fmt.Errorf("block %d: got %d uncompressed bytes, header declared %d: %w",
				block, len(piece), usize, ErrCorruptBlock)
		}
		out = append(out, piece...)
	}
	if len(out) != uncompressed {
		return nil, fmt.Errorf("blocks decompressed to %d bytes, expected %d: %w",
			len(out), uncompressed, ErrCorruptBlock)
	}
	return out, nil
}

func decompressBlock(tag Codec, payload []byte, usize int) ([]byte, error) {
	switch tag {
	case Zlib:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("zlib: %s: %w", err, ErrCorruptBlock)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("zlib: %s: %w", err, ErrCorruptBlock)
		}
		return out, nil
	case LZMA:
		xr, err := xz.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("xz: %s: %w", err, ErrCorruptBlock)
		}
		out, err := io.ReadAll(xr)
		if err != nil {
			return nil, fmt.Errorf("xz: %s: %w", err, ErrCorruptBlock)
		}
		return out, nil
	case LZ4:
		if len(payload) < 8 {
			return nil, fmt.Errorf("lz4: no room for checksum in %d bytes: %w",
				len(payload), ErrCorruptBlock)
		}
		want := binary.BigEndian.Uint64(payload)
		payload = payload[8:]
		if got := xxhash.Sum64(payload); got != want {
			return nil, fmt.Errorf("lz4: checksum %#x does not match block's %#x: %w",
				got, want, ErrCorruptBlock)
		}
		out := make([]byte, usize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %s: %w", err, ErrCorruptBlock)
		}
		return out[:n], nil
	case Zstd:
		out, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, usize))
		if err != nil {
			return nil, fmt.Errorf("zstd: %s: %w", err, ErrCorruptBlock)
		}
		return out, nil
	case Legacy:
		return nil, fmt.Errorf("legacy codec %q: %w", tag, ErrUnsupportedCompression)
	default:
		return nil, fmt.Errorf("codec tag %q: %w", tag, ErrUnsupportedCompression)
	}
}
