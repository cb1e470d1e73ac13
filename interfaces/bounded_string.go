package interfaces

import (
	"fmt"
	"unicode/utf8"
)

// BoundedStringCapacity is the fixed buffer size of every string field in
// a persisted record.
const BoundedStringCapacity = 32

// BoundedString is a UTF-8 string stored in a fixed-capacity buffer with an
// explicit logical length. Only the first Len() bytes are meaningful; the
// padding never takes part in comparisons or address derivation.
type BoundedString struct {
	buf [BoundedStringCapacity]byte
	len uint64
}

// NewBoundedString validates s and copies it into a bounded buffer.
func NewBoundedString(s string) (BoundedString, error) {
	return NewBoundedStringFromBytes([]byte(s))
}

// NewBoundedStringFromBytes validates src and copies it into a bounded buffer.
func NewBoundedStringFromBytes(src []byte) (BoundedString, error) {
	if err := validateBoundedSource(src); err != nil {
		return BoundedString{}, err
	}

	var s BoundedString
	copy(s.buf[:], src)
	s.len = uint64(len(src))
	return s, nil
}

// NewBoundedStringFromLayout rebuilds a bounded string from its persisted
// buffer and length, rejecting lengths beyond capacity and invalid UTF-8.
func NewBoundedStringFromLayout(buf [BoundedStringCapacity]byte, length uint64) (BoundedString, error) {
	if length > BoundedStringCapacity {
		return BoundedString{}, fmt.Errorf("%w: stored length %d exceeds capacity %d", ErrInvalidString, length, BoundedStringCapacity)
	}
	if !utf8.Valid(buf[:length]) {
		return BoundedString{}, fmt.Errorf("%w: stored bytes are not valid utf-8", ErrInvalidString)
	}
	return BoundedString{buf: buf, len: length}, nil
}

func validateBoundedSource(src []byte) error {
	if len(src) > BoundedStringCapacity {
		return fmt.Errorf("%w: `src` slice is too long, maximum allowed is %d bytes, received %d bytes", ErrInvalidString, BoundedStringCapacity, len(src))
	}
	if !utf8.Valid(src) {
		return fmt.Errorf("%w: `src` is not valid utf-8", ErrInvalidString)
	}
	return nil
}

// String returns the logical content.
func (s BoundedString) String() string {
	return string(s.buf[:s.len])
}

// Bytes returns a copy of the logical content.
func (s BoundedString) Bytes() []byte {
	out := make([]byte, s.len)
	copy(out, s.buf[:s.len])
	return out
}

// Len returns the logical length in bytes.
func (s BoundedString) Len() int {
	return int(s.len)
}

// Buffer returns the full fixed-capacity buffer, padding included.
func (s BoundedString) Buffer() [BoundedStringCapacity]byte {
	return s.buf
}

// Equal compares the logical contents.
func (s BoundedString) Equal(other BoundedString) bool {
	return s.String() == other.String()
}

func (s BoundedString) MarshalText() ([]byte, error) {
	return s.Bytes(), nil
}

func (s *BoundedString) UnmarshalText(text []byte) error {
	parsed, err := NewBoundedStringFromBytes(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
