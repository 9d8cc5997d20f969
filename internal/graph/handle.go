package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// Handle identifies a node for the lifetime of a World. The zero Handle
// never refers to a node.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.Gen == 0
}

// String renders h as "index.gen".
func (h Handle) String() string {
	return strconv.FormatUint(uint64(h.Index), 10) + "." + strconv.FormatUint(uint64(h.Gen), 10)
}

// Compare orders handles by index, then generation.
func (h Handle) Compare(o Handle) int {
	switch {
	case h.Index < o.Index:
		return -1
	case h.Index > o.Index:
		return 1
	case h.Gen < o.Gen:
		return -1
	case h.Gen > o.Gen:
		return 1
	}
	return 0
}

// ParseHandle parses the String form.
func ParseHandle(s string) (Handle, error) {
	idx, gen, ok := strings.Cut(s, ".")
	if !ok {
		return Handle{}, fmt.Errorf("invalid handle %q", s)
	}
	i, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil || g == 0 {
		return Handle{}, fmt.Errorf("invalid handle %q", s)
	}
	return Handle{Index: uint32(i), Gen: uint32(g)}, nil
}
