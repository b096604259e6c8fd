// Package wire implements the binary field encoding used by module records.
// Integers and floats are big-endian; strings are an int32 byte length
// followed by UTF-8 bytes; bools are a single byte.
//
// Writer and Reader keep the first error they encounter and turn every
// later call into a no-op, so a record can be written or read as a flat
// sequence of calls followed by a single Err check.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// MaxStringLen bounds decoded strings so a corrupt length cannot trigger a
// huge allocation.
const MaxStringLen = 1 << 20

// ErrMalformed reports structurally invalid input, such as a negative or
// oversized string length or a bool byte other than 0 or 1.
var ErrMalformed = errors.New("wire: malformed input")

var order = binary.BigEndian

// Writer encodes fields to an io.Writer.
type Writer struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewWriter returns a Writer encoding to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

// Int16 writes v.
func (w *Writer) Int16(v int16) {
	order.PutUint16(w.buf[:2], uint16(v))
	w.write(w.buf[:2])
}

// Int32 writes v.
func (w *Writer) Int32(v int32) {
	order.PutUint32(w.buf[:4], uint32(v))
	w.write(w.buf[:4])
}

// Float64 writes v as IEEE 754 bits.
func (w *Writer) Float64(v float64) {
	order.PutUint64(w.buf[:8], math.Float64bits(v))
	w.write(w.buf[:8])
}

// Bool writes v as one byte.
func (w *Writer) Bool(v bool) {
	w.buf[0] = 0
	if v {
		w.buf[0] = 1
	}
	w.write(w.buf[:1])
}

// String writes a length-prefixed string.
func (w *Writer) String(s string) {
	if len(s) > MaxStringLen {
		if w.err == nil {
			w.err = fmt.Errorf("%w: string of %d bytes exceeds limit", ErrMalformed, len(s))
		}
		return
	}
	w.Int32(int32(len(s)))
	w.write([]byte(s))
}

// Bytes writes raw bytes with no length prefix.
func (w *Writer) Bytes(b []byte) {
	w.write(b)
}

// Reader decodes fields from an io.Reader.
type Reader struct {
	r   io.Reader
	buf [8]byte
	err error
}

// NewReader returns a Reader decoding from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered, if any. A short read surfaces as
// io.ErrUnexpectedEOF.
func (r *Reader) Err() error {
	return r.err
}

// Fail records err unless an earlier error is already recorded. Decoders use
// it to report semantic problems through the same channel as I/O errors.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) read(b []byte) bool {
	if r.err != nil {
		return false
	}
	if _, err := io.ReadFull(r.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
		return false
	}
	return true
}

// Int16 reads an int16.
func (r *Reader) Int16() int16 {
	if !r.read(r.buf[:2]) {
		return 0
	}
	return int16(order.Uint16(r.buf[:2]))
}

// Int32 reads an int32.
func (r *Reader) Int32() int32 {
	if !r.read(r.buf[:4]) {
		return 0
	}
	return int32(order.Uint32(r.buf[:4]))
}

// Float64 reads a float64.
func (r *Reader) Float64() float64 {
	if !r.read(r.buf[:8]) {
		return 0
	}
	return math.Float64frombits(order.Uint64(r.buf[:8]))
}

// Bool reads a bool.
func (r *Reader) Bool() bool {
	if !r.read(r.buf[:1]) {
		return false
	}
	switch r.buf[0] {
	case 0:
		return false
	case 1:
		return true
	}
	r.Fail(fmt.Errorf("%w: bool byte %#x", ErrMalformed, r.buf[0]))
	return false
}

// String reads a length-prefixed string.
func (r *Reader) String() string {
	n := r.Int32()
	if r.err != nil {
		return ""
	}
	if n < 0 || n > MaxStringLen {
		r.Fail(fmt.Errorf("%w: string length %d", ErrMalformed, n))
		return ""
	}
	b := make([]byte, n)
	if !r.read(b) {
		return ""
	}
	return string(b)
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) []byte {
	b := make([]byte, n)
	if !r.read(b) {
		return nil
	}
	return b
}
