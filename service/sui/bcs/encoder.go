// Package bcs implements the subset of Binary Canonical Serialization
// needed to encode programmable transactions.
package bcs

import (
	"bytes"
	"encoding/binary"
)

// Encoder appends BCS values to an in-memory buffer. Writes never fail.
type Encoder struct {
	buf bytes.Buffer
}

// Bytes returns the encoded output.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *Encoder) U8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *Encoder) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.buf.WriteByte(1)
		return
	}
	e.buf.WriteByte(0)
}

// ULEB128 writes a length or enum variant index.
func (e *Encoder) ULEB128(v uint64) {
	for v >= 0x80 {
		e.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	e.buf.WriteByte(byte(v))
}

// Fixed writes raw bytes without a length prefix (addresses).
func (e *Encoder) Fixed(b []byte) {
	e.buf.Write(b)
}

// ByteVector writes a length-prefixed byte vector.
func (e *Encoder) ByteVector(b []byte) {
	e.ULEB128(uint64(len(b)))
	e.buf.Write(b)
}

// String writes a length-prefixed UTF-8 string.
func (e *Encoder) String(s string) {
	e.ByteVector([]byte(s))
}

// Variant writes an enum discriminant.
func (e *Encoder) Variant(index int) {
	e.ULEB128(uint64(index))
}

// U64Bytes is the BCS encoding of a single u64, used for pure inputs.
func U64Bytes(v uint64) []byte {
	var e Encoder
	e.U64(v)
	return e.Bytes()
}
