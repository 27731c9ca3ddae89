package mavl

import "crypto/sha256"


//============================================= Merkle Hashing


// EmptyTreeHash is the saved_hash of a tree holding no keys: the SHA-256 of the empty string.
var EmptyTreeHash = sha256.Sum256(nil)

// hashLeaf computes a leaf's Merkle hash at version:
//	SHA-256( varint(0) ‖ varint(2) ‖ varint_signed(version) ‖ varint(len(key)) ‖ key ‖ varint(32) ‖ SHA-256(value) ).
//	Height and size are emitted as the historical constants 0 and 2; the key is length-prefixed in
//	the clear while the value is first digested then embedded by its 32-byte hash. This asymmetry
//	is intentional and preserved bit-exactly.
func hashLeaf(key, value NonEmptyBytes, version U63) [SHA256Len]byte {
	var buf []byte

	buf = putUvarint(buf, 0)
	buf = putUvarint(buf, leafSizeConstant)
	buf = putVarintSigned(buf, version.ToSigned())
	buf = putUvarint(buf, uint64(key.Len()))
	buf = append(buf, key.Bytes()...)

	valueHash := sha256.Sum256(value.Bytes())
	buf = putHash(buf, valueHash)

	return sha256.Sum256(buf)
}

// hashInner computes an inner node's Merkle hash at version from its already-hashed children:
//	SHA-256( varint_signed(height) ‖ varint_signed(size) ‖ varint_signed(version) ‖ varint(32) ‖ left.hash ‖ varint(32) ‖ right.hash ).
func hashInner(height U7, size U63, version U63, leftHash, rightHash [SHA256Len]byte) [SHA256Len]byte {
	var buf []byte

	buf = putVarintSigned(buf, int64(height.ToSigned()))
	buf = putVarintSigned(buf, size.ToSigned())
	buf = putVarintSigned(buf, version.ToSigned())
	buf = putHash(buf, leftHash)
	buf = putHash(buf, rightHash)

	return sha256.Sum256(buf)
}

// hashLeafNode computes l's Merkle hash as it would be at version, without mutating l.
func hashLeafNode(l *LeafNode, version U63) [SHA256Len]byte {
	return hashLeaf(l.key, l.value, version)
}

// hashInnerNode computes n's Merkle hash as it would be at version, given its children's hashes.
func hashInnerNode(n *InnerNode, version U63, leftHash, rightHash [SHA256Len]byte) [SHA256Len]byte {
	return hashInner(n.height, n.size, version, leftHash, rightHash)
}
