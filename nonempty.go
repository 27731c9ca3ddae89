package mavl


//============================================= Non-Empty Byte Strings


// NonEmptyBytes is an immutable byte sequence known at construction time to have length >= 1.
//	Keys and values stored in the tree are always non-empty byte strings; constructing one from
//	empty input returns ok == false instead of a zero-length NonEmptyBytes.
type NonEmptyBytes struct { b []byte }

// NewNonEmptyBytes copies bz into a NonEmptyBytes, rejecting empty input.
func NewNonEmptyBytes(bz []byte) (NonEmptyBytes, bool) {
	if len(bz) == 0 { return NonEmptyBytes{}, false }

	owned := make([]byte, len(bz))
	copy(owned, bz)

	return NonEmptyBytes{ b: owned }, true
}

// wrapNonEmptyBytes wraps bz without copying, for internal use once ownership has already been established.
func wrapNonEmptyBytes(bz []byte) (NonEmptyBytes, bool) {
	if len(bz) == 0 { return NonEmptyBytes{}, false }
	return NonEmptyBytes{ b: bz }, true
}

// Bytes returns the underlying byte slice. Callers must not mutate it.
func (n NonEmptyBytes) Bytes() []byte { return n.b }

// Len returns the length of the byte string; always >= 1 for a validly constructed value.
func (n NonEmptyBytes) Len() int { return len(n.b) }

// Equal reports whether two non-empty byte strings hold the same bytes.
func (n NonEmptyBytes) Equal(other NonEmptyBytes) bool {
	if len(n.b) != len(other.b) { return false }

	for i := range n.b {
		if n.b[i] != other.b[i] { return false }
	}

	return true
}
