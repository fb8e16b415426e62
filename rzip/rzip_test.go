package rzip

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() []byte {
	b := make([]byte, 4096)
	for i := range b {
		b[i] = byte(i / 16)
	}
	return b
}

func TestRoundTripCodecs(t *testing.T) {
	src := testPayload()
	for _, codec := range []Codec{Zlib, LZMA, LZ4, Zstd} {
		t.Run(string(codec), func(t *testing.T) {
			block, err := Compress(codec, src)
			require.NoError(t, err)
			require.Equal(t, string(codec), string(block[:2]))
			out, err := Decompress(block, len(src))
			require.NoError(t, err)
			assert.Equal(t, src, out)
		})
	}
}

func TestMultiBlockMixedCodecs(t *testing.T) {
	first := testPayload()
	second := bytes.Repeat([]byte("abcdefgh"), 512)
	b1, err := Compress(Zlib, first)
	require.NoError(t, err)
	b2, err := Compress(Zstd, second)
	require.NoError(t, err)
	out, err := Decompress(append(b1, b2...), len(first)+len(second))
	require.NoError(t, err)
	want := append(append([]byte{}, first...), second...)
	assert.Equal(t, want, out)
}

func TestUnknownTag(t *testing.T) {
	block, err := Compress(Zlib, testPayload())
	require.NoError(t, err)
	block[0], block[1] = 'Q', 'Q'
	_, err = Decompress(block, 4096)
	require.ErrorIs(t, err, ErrUnsupportedCompression)
	require.Contains(t, err.Error(), "QQ")
}

func TestLegacyTag(t *testing.T) {
	block, err := Compress(Zlib, testPayload())
	require.NoError(t, err)
	block[0], block[1] = 'C', 'S'
	_, err = Decompress(block, 4096)
	require.ErrorIs(t, err, ErrUnsupportedCompression)
}

func TestLZ4ChecksumMismatch(t *testing.T) {
	block, err := Compress(LZ4, testPayload())
	require.NoError(t, err)
	// Flip a bit in the checksum word that follows the 9-byte header.
	block[HeaderSize] ^= 0x80
	_, err = Decompress(block, 4096)
	require.ErrorIs(t, err, ErrCorruptBlock)
}

func TestDeclaredSizeMismatch(t *testing.T) {
	block, err := Compress(Zlib, testPayload())
	require.NoError(t, err)
	// Lie about the uncompressed size.
	block[6], block[7], block[8] = 0x01, 0x10, 0x00
	_, err = Decompress(block, 0x1001)
	require.ErrorIs(t, err, ErrCorruptBlock)
}

func TestTruncatedBlock(t *testing.T) {
	block, err := Compress(Zstd, testPayload())
	require.NoError(t, err)
	_, err = Decompress(block[:len(block)-3], 4096)
	require.ErrorIs(t, err, ErrCorruptBlock)
}
