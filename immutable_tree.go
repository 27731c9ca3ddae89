package mavl

import "context"


//============================================= Immutable Tree


// ImmutableTree is a read-only, shareable handle onto one saved version of the tree. Its root may
//	be nil (an empty tree). Multiple ImmutableTree values may be read concurrently.
type ImmutableTree struct {
	root    *Child
	hash    [SHA256Len]byte
	version U63
	ndb     *NodeDB
}

func newImmutableTree(root *Child, hash [SHA256Len]byte, version U63, ndb *NodeDB) *ImmutableTree {
	return &ImmutableTree{ root: root, hash: hash, version: version, ndb: ndb }
}

// Hash returns the saved Merkle root hash of this version.
func (t *ImmutableTree) Hash() [SHA256Len]byte { return t.hash }

// Version returns the version this tree was saved at.
func (t *ImmutableTree) Version() U63 { return t.version }

// Size returns the number of distinct keys in this version.
func (t *ImmutableTree) Size() U63 {
	if t.root == nil { return U63{} }

	n, err := t.root.Resolve(context.Background(), t.ndb)
	if err != nil { return U63{} }

	return n.Size()
}

// Get looks up key, returning its in-order index and value if present. When key is absent, index
//	equals the number of stored keys strictly less than key, and found is false.
func (t *ImmutableTree) Get(ctx context.Context, key NonEmptyBytes) (index U63, value NonEmptyBytes, found bool, err error) {
	if t.root == nil { return U63{}, NonEmptyBytes{}, false, nil }

	n, err := t.root.Resolve(ctx, t.ndb)
	if err != nil { return U63{}, NonEmptyBytes{}, false, err }

	return getFromNode(ctx, t.ndb, n, key)
}

// getFromNode implements the §4.G descent shared by ImmutableTree.Get and MutableTree.Get: at an
//	inner node, a left-bound key returns its subtree's result directly, while a right-bound key's
//	index is offset by the count of keys in the left subtree (node.size - right.size).
func getFromNode(ctx context.Context, ndb *NodeDB, n Node, key NonEmptyBytes) (U63, NonEmptyBytes, bool, error) {
	switch node := n.(type) {
		case *LeafNode:
			if key.Equal(node.key) { return U63{}, node.value, true, nil }
			if bytesLess(node.key.Bytes(), key.Bytes()) { return U63One, NonEmptyBytes{}, false, nil }
			return U63{}, NonEmptyBytes{}, false, nil

		case *InnerNode:
			if bytesLess(key.Bytes(), node.key.Bytes()) {
				left, err := node.left.Resolve(ctx, ndb)
				if err != nil { return U63{}, NonEmptyBytes{}, false, err }

				return getFromNode(ctx, ndb, left, key)
			}

			right, err := node.right.Resolve(ctx, ndb)
			if err != nil { return U63{}, NonEmptyBytes{}, false, err }

			rightIndex, rightValue, rightFound, err := getFromNode(ctx, ndb, right, key)
			if err != nil { return U63{}, NonEmptyBytes{}, false, err }

			leftCount, ok := subU63(node.size, right.Size())
			if ! ok { return U63{}, NonEmptyBytes{}, false, newErr(ErrOverflow, "in-order index accounting underflowed") }

			index, ok := AddU63(rightIndex, leftCount)
			if ! ok { return U63{}, NonEmptyBytes{}, false, newErr(ErrOverflow, "in-order index overflowed U63") }

			return index, rightValue, rightFound, nil

		default:
			return U63{}, NonEmptyBytes{}, false, newErr(ErrDeserialization, "unknown node type")
	}
}

// subU63 computes a - b within the U63 domain, reporting false on underflow.
func subU63(a, b U63) (U63, bool) {
	if b.Get() > a.Get() { return U63{}, false }
	return NewU63(a.Get() - b.Get())
}

// bytesLess reports whether a sorts strictly before b lexicographically.
func bytesLess(a, b []byte) bool {
	n := len(a)
	if len(b) < n { n = len(b) }

	for i := 0; i < n; i++ {
		if a[i] != b[i] { return a[i] < b[i] }
	}

	return len(a) < len(b)
}
