package arena

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedHandle is returned by ParseHandle for text that is not a
// handle token.
var ErrMalformedHandle = errors.New("malformed node handle")

// Handle is an opaque reference to a node slot in one Arena. The zero
// Handle never refers to a node.
type Handle struct {
	arena      uint32
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// String returns the host token form "<arena>.<index>.<generation>".
func (h Handle) String() string {
	return fmt.Sprintf("%d.%d.%d", h.arena, h.index, h.generation)
}

// ParseHandle parses a token produced by Handle.String.
func ParseHandle(s string) (Handle, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Handle{}, fmt.Errorf("%w: %q", ErrMalformedHandle, s)
	}
	var nums [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Handle{}, fmt.Errorf("%w: %q", ErrMalformedHandle, s)
		}
		nums[i] = uint32(n)
	}
	return Handle{arena: nums[0], index: nums[1], generation: nums[2]}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
