package mavl

import "bytes"
import "encoding/binary"


//============================================= Node Key & DB Key


const (
	// nodeDbKeyTag is the one-byte tag prefixing every DB key this component writes.
	nodeDbKeyTag byte = 's'
	// nodeDbKeyLen is the fixed width of a DB key: 1 tag byte + 8 version bytes + 4 nonce bytes.
	nodeDbKeyLen = 1 + 8 + 4
	// rootNonce is the nonce every saved root is assigned; used to disambiguate reference/empty roots on read.
	rootNonce uint32 = 1
)

// NodeKey globally identifies a saved node: the version it first belonged to, and a per-save
//	pre-order sequence number (nonce). Root nodes always get nonce 1.
type NodeKey struct {
	Version U63
	Nonce   U31
}

// dbKey returns the fixed-width 13-byte DB key for nk: tag ‖ version_be ‖ nonce_be.
//	Byte-lexicographic comparison of dbKeys matches (version, nonce) lexicographic order.
func (nk NodeKey) dbKey() [nodeDbKeyLen]byte {
	var out [nodeDbKeyLen]byte
	out[0] = nodeDbKeyTag

	binary.BigEndian.PutUint64(out[1:9], nk.Version.Get())
	binary.BigEndian.PutUint32(out[9:13], nk.Nonce.Get())

	return out
}

// rootDbKey returns the DB key for the version's root slot (nonce == 1), where empty-root
//	markers, reference-root records, and ordinary node records at the root are all written.
func rootDbKey(version U63) [nodeDbKeyLen]byte {
	nonce, _ := NewU31(rootNonce)
	return NodeKey{ Version: version, Nonce: nonce }.dbKey()
}

// parseDbKey splits a 13-byte DB key back into its version and nonce fields. Used to decode a
//	reference-root record's payload, which is itself a DB key.
func parseDbKey(key []byte) (NodeKey, bool) {
	if len(key) != nodeDbKeyLen || key[0] != nodeDbKeyTag { return NodeKey{}, false }

	version, ok := NewU63(binary.BigEndian.Uint64(key[1:9]))
	if ! ok { return NodeKey{}, false }

	nonce, ok := NewU31(binary.BigEndian.Uint32(key[9:13]))
	if ! ok { return NodeKey{}, false }

	return NodeKey{ Version: version, Nonce: nonce }, true
}

// serialize writes the NodeKey's wire form (used inside an Inner node's serialized children):
//	zigzag_varint(version) ‖ zigzag_varint(nonce).
func (nk NodeKey) serialize(buf []byte) []byte {
	buf = putVarintSigned(buf, nk.Version.ToSigned())
	buf = putVarintSigned(buf, int64(nk.Nonce.ToSigned()))
	return buf
}

// deserializeNodeKey reads a NodeKey in its wire form from r.
func deserializeNodeKey(r *bytes.Reader) (NodeKey, error) {
	versionU, err := readVarintUnsignedDomain(r)
	if err != nil { return NodeKey{}, err }

	version, ok := NewU63(versionU)
	if ! ok { return NodeKey{}, newErr(ErrOverflow, "node key version out of U63 domain") }

	nonceU, err := readVarintUnsignedDomain(r)
	if err != nil { return NodeKey{}, err }

	nonce, ok := NewU31(uint32(nonceU))
	if ! ok || nonceU > uint64(U31Max) { return NodeKey{}, newErr(ErrOverflow, "node key nonce out of U31 domain") }

	return NodeKey{ Version: version, Nonce: nonce }, nil
}
