package wire

import (
	"errors"
	"fmt"
)

// ErrUnexpectedEnd reports that the input ended mid-message.
var ErrUnexpectedEnd = errors.New("wire: unexpected end of input")

// ErrStringTooLong reports an attempt to encode a string longer than the
// 255 bytes the one-byte length prefix can carry.
var ErrStringTooLong = errors.New("wire: string length above 255")

// UnknownDiscriminantError reports a sum-type tag outside the variant
// range declared for that sum.
type UnknownDiscriminantError struct {
	Sum   string
	Value uint8
}

func (e *UnknownDiscriminantError) Error() string {
	return fmt.Sprintf("wire: unknown %s discriminant %d", e.Sum, e.Value)
}

// TrailingBytesError reports leftover bytes in a datagram after a complete
// message was decoded. The whole datagram is a protocol violation.
type TrailingBytesError struct {
	Count int
}

func (e *TrailingBytesError) Error() string {
	return fmt.Sprintf("wire: %d trailing byte(s) after message", e.Count)
}
