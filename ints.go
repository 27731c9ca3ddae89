package mavl


//============================================= Bounded Integer Domains


// U7 is an unsigned integer confined to [0, 2^7 - 1], the positive range of a signed byte.
//	Node heights live in this domain: the varint encoding of a height always round-trips through
//	its signed form (int8) without overflow.
type U7 struct { v uint8 }

// U7Min, U7One, U7Two are the constants every bounded-integer domain exposes.
var (
	U7Min = U7{ 0 }
	U7One = U7{ 1 }
	U7Two = U7{ 2 }
)

// U7Max is the largest representable U7: 127, i.e. math.MaxInt8.
const U7Max uint8 = 1<<7 - 1

// NewU7 constructs a U7, rejecting values above U7Max.
func NewU7(v uint8) (U7, bool) {
	if v > U7Max { return U7{}, false }
	return U7{ v }, true
}

// U7FromSigned constructs a U7 from a signed byte, rejecting negatives.
func U7FromSigned(v int8) (U7, bool) {
	if v < 0 { return U7{}, false }
	return NewU7(uint8(v))
}

// Get returns the underlying unsigned value.
func (u U7) Get() uint8 { return u.v }

// ToSigned returns the value reinterpreted as a signed byte; always in range by construction.
func (u U7) ToSigned() int8 { return int8(u.v) }

// AddU7 adds two U7 values, reporting whether the sum stayed within the domain.
func AddU7(a, b U7) (U7, bool) {
	sum := uint16(a.v) + uint16(b.v)
	if sum > uint16(U7Max) { return U7{}, false }
	return U7{ uint8(sum) }, true
}

// MaxU7 returns the larger of two U7 values.
func MaxU7(a, b U7) U7 {
	if a.v >= b.v { return a }
	return b
}


// U31 is an unsigned integer confined to [0, 2^31 - 1]. Save nonces live in this domain.
type U31 struct { v uint32 }

var (
	U31Min = U31{ 0 }
	U31One = U31{ 1 }
	U31Two = U31{ 2 }
)

// U31Max is the largest representable U31: math.MaxInt32.
const U31Max uint32 = 1<<31 - 1

func NewU31(v uint32) (U31, bool) {
	if v > U31Max { return U31{}, false }
	return U31{ v }, true
}

func U31FromSigned(v int32) (U31, bool) {
	if v < 0 { return U31{}, false }
	return NewU31(uint32(v))
}

func (u U31) Get() uint32 { return u.v }
func (u U31) ToSigned() int32 { return int32(u.v) }

// AddU31 adds two U31 values, reporting whether the sum stayed within the domain.
func AddU31(a, b U31) (U31, bool) {
	sum := uint64(a.v) + uint64(b.v)
	if sum > uint64(U31Max) { return U31{}, false }
	return U31{ uint32(sum) }, true
}


// U63 is an unsigned integer confined to [0, 2^63 - 1]. Versions and subtree sizes live in this domain.
type U63 struct { v uint64 }

var (
	U63Min = U63{ 0 }
	U63One = U63{ 1 }
	U63Two = U63{ 2 }
)

// U63Max is the largest representable U63: math.MaxInt64.
const U63Max uint64 = 1<<63 - 1

func NewU63(v uint64) (U63, bool) {
	if v > U63Max { return U63{}, false }
	return U63{ v }, true
}

func U63FromSigned(v int64) (U63, bool) {
	if v < 0 { return U63{}, false }
	return NewU63(uint64(v))
}

func (u U63) Get() uint64 { return u.v }
func (u U63) ToSigned() int64 { return int64(u.v) }

// AddU63 adds two U63 values, reporting whether the sum stayed within the domain.
func AddU63(a, b U63) (U63, bool) {
	sum := a.v + b.v
	if sum < a.v || sum > U63Max { return U63{}, false }
	return U63{ sum }, true
}

// IncU63 increments a U63 by one, reporting whether the domain was exceeded (version/size bumps).
func IncU63(a U63) (U63, bool) {
	return AddU63(a, U63One)
}
