package query

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Cursor is an opaque position within a paged result set. Stores encode a
// record id as 8 big endian bytes.
type Cursor []byte

var EmptyCursor = Cursor{}

func ToCursor(id uint64) Cursor {
	c := make(Cursor, 8)
	binary.BigEndian.PutUint64(c, id)
	return c
}

// CursorFromBase58 parses a cursor previously rendered with ToBase58.
func CursorFromBase58(val string) (Cursor, error) {
	raw, err := base58.Decode(val)
	if err != nil {
		return nil, errors.Wrap(err, "invalid cursor encoding")
	}
	if len(raw) != 8 {
		return nil, errors.Errorf("invalid cursor length: %d", len(raw))
	}
	return raw, nil
}

func (c Cursor) ToUint64() uint64 {
	return binary.BigEndian.Uint64(c)
}

func (c Cursor) ToBase58() string {
	return base58.Encode(c)
}
