// Package shortvec implements the compact length prefix used throughout the
// Solana wire format: 7 bits per byte, low bits first, with the high bit set
// on every byte but the last. Lengths are limited to a u16.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedBytes = 3

var (
	ErrLengthTooLarge  = errors.Errorf("length exceeds %d", math.MaxUint16)
	ErrInvalidEncoding = errors.New("invalid shortvec encoding")
)

// AppendLen appends the encoding of n to dst.
func AppendLen(dst []byte, n int) ([]byte, error) {
	if n < 0 || n > math.MaxUint16 {
		return dst, ErrLengthTooLarge
	}

	for n >= 0x80 {
		dst = append(dst, byte(n&0x7f)|0x80)
		n >>= 7
	}
	return append(dst, byte(n)), nil
}

// DecodeLen reads an encoded length from r.
func DecodeLen(r io.ByteReader) (int, error) {
	var n int
	for i := 0; i < maxEncodedBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		n |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return n, nil
		}
	}
	return 0, ErrInvalidEncoding
}
