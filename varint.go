package mavl

import "bytes"
import "crypto/sha256"
import "encoding/binary"
import "io"


//============================================= Primitive Encoding


// SHA256Len is the fixed length in bytes of a SHA-256 digest.
const SHA256Len = sha256.Size

// putUvarint appends the unsigned varint encoding of v to buf and returns the extended slice.
func putUvarint(buf []byte, v uint64) []byte {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], v)
	return append(buf, scratch[:n]...)
}

// readUvarint reads an unsigned varint from r.
func readUvarint(r io.ByteReader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil { return 0, wrapErr(ErrDeserialization, "invalid varint", err) }

	return v, nil
}

// zigzagEncode maps a signed value onto the unsigned domain so small-magnitude negatives stay small.
func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// zigzagDecode is the inverse of zigzagEncode.
func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// putVarintSigned appends the zigzag varint encoding of a signed value to buf.
func putVarintSigned(buf []byte, v int64) []byte {
	return putUvarint(buf, zigzagEncode(v))
}

// readVarintSigned reads a zigzag varint and returns the signed value it encodes.
func readVarintSigned(r io.ByteReader) (int64, error) {
	u, err := readUvarint(r)
	if err != nil { return 0, err }

	return zigzagDecode(u), nil
}

// readVarintUnsignedDomain reads a zigzag varint signed value and rejects negatives, since the
//	caller expects a value from one of the U7/U31/U63 unsigned domains.
func readVarintUnsignedDomain(r io.ByteReader) (uint64, error) {
	signed, err := readVarintSigned(r)
	if err != nil { return 0, err }

	if signed < 0 { return 0, newErr(ErrInvalidInteger, "negative value in unsigned domain") }

	return uint64(signed), nil
}

// putLengthPrefixedBytes appends varint(len(bz)) ‖ bz to buf.
func putLengthPrefixedBytes(buf []byte, bz []byte) []byte {
	buf = putUvarint(buf, uint64(len(bz)))
	return append(buf, bz...)
}

// readLengthPrefixedBytes reads a varint length prefix followed by that many bytes.
//	A zero length prefix decodes to (nil, false, nil): "absent", not an error.
func readLengthPrefixedBytes(r *bytes.Reader) ([]byte, bool, error) {
	length, err := readUvarint(r)
	if err != nil { return nil, false, err }

	if length == 0 { return nil, false, nil }

	buf := make([]byte, length)
	n, rerr := io.ReadFull(r, buf)
	if rerr != nil || uint64(n) != length {
		return nil, false, newErr(ErrDeserialization, "length-prefixed byte string truncated")
	}

	return buf, true, nil
}

// putLengthPrefixedNonEmpty appends a length-prefixed encoding of a required non-empty byte string.
func putLengthPrefixedNonEmpty(buf []byte, bz NonEmptyBytes) []byte {
	return putLengthPrefixedBytes(buf, bz.Bytes())
}

// readLengthPrefixedNonEmpty reads a length-prefixed byte string that must not be empty.
func readLengthPrefixedNonEmpty(r *bytes.Reader) (NonEmptyBytes, error) {
	bz, ok, err := readLengthPrefixedBytes(r)
	if err != nil { return NonEmptyBytes{}, err }

	if ! ok { return NonEmptyBytes{}, newErr(ErrDeserialization, "zero-length prefix where non-empty byte string required") }

	out, wok := wrapNonEmptyBytes(bz)
	if ! wok { return NonEmptyBytes{}, newErr(ErrDeserialization, "zero-length prefix where non-empty byte string required") }

	return out, nil
}

// putHash appends varint(32) ‖ hash to buf.
func putHash(buf []byte, hash [SHA256Len]byte) []byte {
	buf = putUvarint(buf, uint64(SHA256Len))
	return append(buf, hash[:]...)
}

// readHash reads a varint(32) ‖ 32-byte hash, rejecting any length prefix other than exactly 32.
func readHash(r *bytes.Reader) ([SHA256Len]byte, error) {
	var out [SHA256Len]byte

	length, err := readUvarint(r)
	if err != nil { return out, err }

	if length != uint64(SHA256Len) {
		return out, newErr(ErrDeserialization, "hash length prefix must equal 32")
	}

	n, rerr := io.ReadFull(r, out[:])
	if rerr != nil || n != SHA256Len {
		return out, newErr(ErrDeserialization, "hash truncated")
	}

	return out, nil
}
