// Package binary reads and writes the fixed layout, little endian account
// formats used by the native programs.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
)

// OptionSize is the width of the COption tag that precedes optional fields.
const OptionSize = 4

// Encoder writes fields sequentially into a preallocated buffer. Writes past
// the end of the buffer panic, so callers size the buffer from the layout.
type Encoder struct {
	buf    []byte
	offset int
}

func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, size)}
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) Uint8(v uint8) {
	e.buf[e.offset] = v
	e.offset++
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint8(1)
	} else {
		e.Uint8(0)
	}
}

func (e *Encoder) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[e.offset:], v)
	e.offset += 8
}

func (e *Encoder) Key(k ed25519.PublicKey) {
	copy(e.buf[e.offset:e.offset+ed25519.PublicKeySize], k)
	e.offset += ed25519.PublicKeySize
}

// OptionalKey writes a COption<Pubkey>. An empty key is encoded as None.
func (e *Encoder) OptionalKey(k ed25519.PublicKey) {
	e.tag(len(k) > 0)
	e.Key(k)
}

// OptionalUint64 writes a COption<u64>.
func (e *Encoder) OptionalUint64(v *uint64) {
	e.tag(v != nil)
	if v != nil {
		e.Uint64(*v)
	} else {
		e.offset += 8
	}
}

func (e *Encoder) tag(some bool) {
	if some {
		binary.LittleEndian.PutUint32(e.buf[e.offset:], 1)
	}
	e.offset += OptionSize
}

// Decoder reads fields sequentially from a buffer whose length the caller
// has already validated against the layout.
type Decoder struct {
	buf    []byte
	offset int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) Uint8() uint8 {
	v := d.buf[d.offset]
	d.offset++
	return v
}

func (d *Decoder) Uint64() uint64 {
	v := binary.LittleEndian.Uint64(d.buf[d.offset:])
	d.offset += 8
	return v
}

func (d *Decoder) Key() ed25519.PublicKey {
	k := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(k, d.buf[d.offset:])
	d.offset += ed25519.PublicKeySize
	return k
}

// OptionalKey reads a COption<Pubkey>, returning nil for None.
func (d *Decoder) OptionalKey() ed25519.PublicKey {
	if !d.tag() {
		d.offset += ed25519.PublicKeySize
		return nil
	}
	return d.Key()
}

// OptionalUint64 reads a COption<u64>, returning nil for None.
func (d *Decoder) OptionalUint64() *uint64 {
	if !d.tag() {
		d.offset += 8
		return nil
	}
	v := d.Uint64()
	return &v
}

func (d *Decoder) tag() bool {
	some := binary.LittleEndian.Uint32(d.buf[d.offset:]) == 1
	d.offset += OptionSize
	return some
}
