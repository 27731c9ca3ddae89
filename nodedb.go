package mavl

import "bytes"
import "context"


//============================================= Node Database


// emptyRootMarker is the single-byte value written at (version, 1) for a version whose tree holds
//	no keys.
const emptyRootMarker byte = 0xFF

// referenceRootTag is the leading byte of a reference-root record's value: the same tag byte
//	every DB key in this component carries, since the value itself is a 13-byte DB key.
const referenceRootTag = nodeDbKeyTag

// Fetched is the result of looking up a NodeKey in the node DB: exactly one of its fields holds
//	meaning, selected by Kind.
type Fetched struct {
	Kind      FetchedKind
	Reference NodeKey
	Node      Node
}

type FetchedKind int

const (
	FetchedEmpty FetchedKind = iota
	FetchedReference
	FetchedDeserialized
)

// NodeDB wraps an ordered Store with the three logical record kinds nodes are persisted as.
type NodeDB struct {
	store Store
}

func NewNodeDB(store Store) *NodeDB { return &NodeDB{ store: store } }

// FetchOneNode looks up nk's DB key, disambiguating (nonce == 1) first, then by leading byte, per
//	§4.F: reference-root and empty-root records only ever occur at nonce == 1.
func (db *NodeDB) FetchOneNode(ctx context.Context, nk NodeKey) (*Fetched, error) {
	keyArr := nk.dbKey()
	key, _ := wrapNonEmptyBytes(keyArr[:])

	value, ok, err := db.store.Get(ctx, key)
	if err != nil { return nil, wrapErr(ErrStore, "fetch one node", err) }
	if ! ok { return nil, nil }

	if nk.Nonce.Get() == rootNonce {
		raw := value.Bytes()

		if len(raw) == 1 && raw[0] == emptyRootMarker {
			return &Fetched{ Kind: FetchedEmpty }, nil
		}

		if len(raw) == nodeDbKeyLen && raw[0] == referenceRootTag {
			refNk, ok := parseDbKey(raw)
			if ok { return &Fetched{ Kind: FetchedReference, Reference: refNk }, nil }
		}
	}

	node, derr := decodeNode(value.Bytes())
	if derr != nil { return nil, derr }

	return &Fetched{ Kind: FetchedDeserialized, Node: attachNodeKey(node, nk) }, nil
}

// attachNodeKey promotes a freshly-decoded node to Saved at nk. The wire format never carries a
//	node's own version or nonce (those are implicit in the DB key it was fetched by): a leaf's
//	hash is recomputed from its content at nk.Version, while an inner's hash was already embedded
//	in its payload and only needs nk attached.
func attachNodeKey(n Node, nk NodeKey) Node {
	switch node := n.(type) {
		case *LeafNode:
			hash := hashLeafNode(node, nk.Version)
			return node.withHash(nk.Version, hash).withNonce(nk.Nonce)

		case *InnerNode:
			hash, _ := node.Hash()
			withVersion := &InnerNode{ key: node.key, height: node.height, size: node.size, left: node.left, right: node.right, info: hashedInfo(nk.Version, hash) }
			return withVersion.withNonce(nk.Nonce)

		default:
			return n
	}
}

// SaveOverwritingOneNode writes saved's serialized form at its own NodeKey, overwriting any
//	existing record, and reports whether a record already existed there.
func (db *NodeDB) SaveOverwritingOneNode(ctx context.Context, saved Node) (bool, error) {
	nk, ok := saved.NodeKey()
	if ! ok { return false, newErr(ErrMissingNodeKey, "node must be saved before it can be persisted") }

	payload, err := encodeSavedNode(saved)
	if err != nil { return false, err }

	keyArr := nk.dbKey()
	key, _ := wrapNonEmptyBytes(keyArr[:])
	value, _ := wrapNonEmptyBytes(payload)

	existed, werr := db.store.Insert(ctx, key, value)
	if werr != nil { return false, wrapErr(ErrStore, "save overwriting one node", werr) }

	return existed, nil
}

// SaveNonOverwritingOneNode writes saved only if no record already exists at its NodeKey; if one
//	does, it is fetched and returned unchanged instead.
func (db *NodeDB) SaveNonOverwritingOneNode(ctx context.Context, saved Node) (*Fetched, error) {
	nk, ok := saved.NodeKey()
	if ! ok { return nil, newErr(ErrMissingNodeKey, "node must be saved before it can be persisted") }

	existing, err := db.FetchOneNode(ctx, nk)
	if err != nil { return nil, err }
	if existing != nil { return existing, nil }

	if _, err := db.SaveOverwritingOneNode(ctx, saved); err != nil { return nil, err }
	return nil, nil
}

// SaveOverwritingEmptyRoot writes the empty-root marker at (version, 1).
func (db *NodeDB) SaveOverwritingEmptyRoot(ctx context.Context, version U63) error {
	keyArr := rootDbKey(version)
	key, _ := wrapNonEmptyBytes(keyArr[:])
	value, _ := wrapNonEmptyBytes([]byte{ emptyRootMarker })

	if _, err := db.store.Insert(ctx, key, value); err != nil {
		return wrapErr(ErrStore, "save overwriting empty root", err)
	}

	return nil
}

// SaveOverwritingReferenceRoot writes a reference-root record at (version, 1) pointing at originalNk.
func (db *NodeDB) SaveOverwritingReferenceRoot(ctx context.Context, version U63, originalNk NodeKey) error {
	keyArr := rootDbKey(version)
	key, _ := wrapNonEmptyBytes(keyArr[:])

	refArr := originalNk.dbKey()
	value, _ := wrapNonEmptyBytes(refArr[:])

	if _, err := db.store.Insert(ctx, key, value); err != nil {
		return wrapErr(ErrStore, "save overwriting reference root", err)
	}

	return nil
}

// nodeDbKeyPrefix is the one-byte range bound every DB key written by this component starts with.
var nodeDbKeyPrefix = []byte{ nodeDbKeyTag }

// LatestVersion iterates the DB range starting at the 's' tag and returns the version field of the
//	last key, or (zero, false) if no such key exists.
func (db *NodeDB) LatestVersion(ctx context.Context) (U63, bool, error) {
	start, _ := wrapNonEmptyBytes(nodeDbKeyPrefix)

	cursor, err := db.store.ReverseIter(ctx, start, NonEmptyBytes{})
	if err != nil { return U63{}, false, wrapErr(ErrStore, "latest version scan", err) }
	defer cursor.Close()

	kv, ok, err := cursor.Next()
	if err != nil { return U63{}, false, wrapErr(ErrStore, "latest version scan", err) }
	if ! ok { return U63{}, false, nil }

	if ! bytes.HasPrefix(kv.Key.Bytes(), nodeDbKeyPrefix) { return U63{}, false, nil }

	nk, ok := parseDbKey(kv.Key.Bytes())
	if ! ok { return U63{}, false, newErr(ErrDeserialization, "latest version key malformed") }

	return nk.Version, true, nil
}

// FetchLatestRootNode combines LatestVersion with a root fetch at (version, 1).
func (db *NodeDB) FetchLatestRootNode(ctx context.Context) (U63, *Fetched, error) {
	version, ok, err := db.LatestVersion(ctx)
	if err != nil { return U63{}, nil, err }
	if ! ok { return U63{}, nil, nil }

	rootNk := NodeKey{ Version: version, Nonce: mustRootNonce() }
	fetched, err := db.FetchOneNode(ctx, rootNk)
	if err != nil { return U63{}, nil, err }

	return version, fetched, nil
}

func mustRootNonce() U31 {
	n, _ := NewU31(rootNonce)
	return n
}

// encodeSavedNode dispatches a Saved node's wire encoding by concrete type.
func encodeSavedNode(n Node) ([]byte, error) {
	switch t := n.(type) {
		case *LeafNode:
			return t.encode(nil), nil
		case *InnerNode:
			return t.encode(nil)
		default:
			return nil, newErr(ErrSerialization, "unknown node type")
	}
}
