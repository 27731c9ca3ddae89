package mavl

import "context"
import "sync"


//============================================= Mutable Tree


// MutableTree is the working handle: Insert and Remove build an in-memory, path-copied tree on
//	top of whatever is already Saved, and Save commits it as a new version. Only one goroutine may
//	drive mutation on a given MutableTree at a time; see §5.
type MutableTree struct {
	mu        sync.Mutex
	root      *Child
	version   U63
	size      U63
	ndb       *NodeDB
	lastSaved *ImmutableTree
}

// NewMutableTree returns a fresh, empty working tree over store.
func NewMutableTree(store Store) *MutableTree {
	return &MutableTree{ ndb: NewNodeDB(store) }
}

// LoadMutableTreeLatestVersion opens the most recently saved version of the tree in store, or a
//	fresh empty tree if the store holds nothing.
func LoadMutableTreeLatestVersion(ctx context.Context, store Store) (*MutableTree, error) {
	ndb := NewNodeDB(store)

	version, fetched, err := ndb.FetchLatestRootNode(ctx)
	if err != nil { return nil, err }
	if fetched == nil { return &MutableTree{ ndb: ndb }, nil }

	switch fetched.Kind {
		case FetchedEmpty:
			return &MutableTree{ ndb: ndb, version: version }, nil

		case FetchedReference:
			original, err := ndb.FetchOneNode(ctx, fetched.Reference)
			if err != nil { return nil, err }
			if original == nil || original.Kind != FetchedDeserialized {
				return nil, newErr(ErrInvalidChild, "reference root points to a missing or non-node record")
			}

			root := fullChild(original.Node)
			hash, _ := original.Node.Hash()

			return &MutableTree{
				ndb: ndb, version: version, size: original.Node.Size(), root: root,
				lastSaved: newImmutableTree(root, hash, version, ndb),
			}, nil

		case FetchedDeserialized:
			recomputed, err := recomputeHash(ctx, ndb, fetched.Node, version)
			if err != nil { return nil, err }

			storedHash, _ := fetched.Node.Hash()
			if recomputed != storedHash { return nil, newErr(ErrConflictingRoot, "recomputed root hash disagrees with stored hash") }

			root := fullChild(fetched.Node)

			return &MutableTree{
				ndb: ndb, version: version, size: fetched.Node.Size(), root: root,
				lastSaved: newImmutableTree(root, storedHash, version, ndb),
			}, nil

		default:
			return nil, newErr(ErrDeserialization, "unknown fetched root kind")
	}
}

// recomputeHash recomputes n's Merkle hash at version from scratch, resolving children as needed.
//	Used to verify a loaded root's stored hash and to verify WithSavedRoot's claimed hash.
func recomputeHash(ctx context.Context, ndb *NodeDB, n Node, version U63) ([SHA256Len]byte, error) {
	switch node := n.(type) {
		case *LeafNode:
			return hashLeafNode(node, version), nil

		case *InnerNode:
			left, err := node.left.Resolve(ctx, ndb)
			if err != nil { return [SHA256Len]byte{}, err }

			right, err := node.right.Resolve(ctx, ndb)
			if err != nil { return [SHA256Len]byte{}, err }

			leftHash, _ := left.Hash()
			rightHash, _ := right.Hash()

			return hashInnerNode(node, version, leftHash, rightHash), nil

		default:
			return [SHA256Len]byte{}, newErr(ErrDeserialization, "unknown node type")
	}
}

func (t *MutableTree) Version() U63 { return t.version }
func (t *MutableTree) Size() U63    { return t.size }

// SavedHash returns the hash of the last-saved snapshot, if any.
func (t *MutableTree) SavedHash() ([SHA256Len]byte, bool) {
	if t.lastSaved == nil { return [SHA256Len]byte{}, false }
	return t.lastSaved.Hash(), true
}

// LastSaved returns a read-only handle onto the last-saved snapshot, if any.
func (t *MutableTree) LastSaved() *ImmutableTree { return t.lastSaved }

// Get looks up key against the current working tree, including any unsaved mutations.
func (t *MutableTree) Get(ctx context.Context, key NonEmptyBytes) (U63, NonEmptyBytes, bool, error) {
	if t.root == nil { return U63{}, NonEmptyBytes{}, false, nil }

	n, err := t.root.Resolve(ctx, t.ndb)
	if err != nil { return U63{}, NonEmptyBytes{}, false, err }

	return getFromNode(ctx, t.ndb, n, key)
}

// Insert adds or replaces key's value. updated is true iff key already existed (size unchanged).
func (t *MutableTree) Insert(ctx context.Context, key, value NonEmptyBytes) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root == nil {
		t.root = fullChild(NewDraftedLeaf(key, value))
		t.size = U63One
		return false, nil
	}

	newRoot, updated, err := t.insertNode(ctx, t.root, key, value)
	if err != nil { return false, err }

	t.root = fullChild(newRoot)

	if ! updated {
		newSize, ok := IncU63(t.size)
		if ! ok { return false, newErr(ErrOverflow, "tree size exceeds U63 domain") }
		t.size = newSize
	}

	return updated, nil
}

func (t *MutableTree) insertNode(ctx context.Context, child *Child, key, value NonEmptyBytes) (Node, bool, error) {
	n, err := child.Resolve(ctx, t.ndb)
	if err != nil { return nil, false, err }

	switch node := n.(type) {
		case *LeafNode:
			switch {
				case key.Equal(node.key):
					return NewDraftedLeaf(key, value), true, nil

				case bytesLess(key.Bytes(), node.key.Bytes()):
					newLeaf := NewDraftedLeaf(key, value)
					return &InnerNode{ key: node.key, height: U7One, size: U63Two, left: fullChild(newLeaf), right: fullChild(node) }, false, nil

				default:
					newLeaf := NewDraftedLeaf(key, value)
					return &InnerNode{ key: key, height: U7One, size: U63Two, left: fullChild(node), right: fullChild(newLeaf) }, false, nil
			}

		case *InnerNode:
			leftNode, err := node.left.Resolve(ctx, t.ndb)
			if err != nil { return nil, false, err }

			rightNode, err := node.right.Resolve(ctx, t.ndb)
			if err != nil { return nil, false, err }

			if bytesLess(key.Bytes(), node.key.Bytes()) {
				newLeft, updated, err := t.insertNode(ctx, node.left, key, value)
				if err != nil { return nil, false, err }

				rebuilt, err := buildInner(node.key, fullChild(newLeft), fullChild(rightNode))
				if err != nil { return nil, false, err }
				if updated { return rebuilt, true, nil }

				balanced, err := makeBalanced(rebuilt)
				return balanced, false, err
			}

			newRight, updated, err := t.insertNode(ctx, node.right, key, value)
			if err != nil { return nil, false, err }

			rebuilt, err := buildInner(node.key, fullChild(leftNode), fullChild(newRight))
			if err != nil { return nil, false, err }
			if updated { return rebuilt, true, nil }

			balanced, err := makeBalanced(rebuilt)
			return balanced, false, err

		default:
			return nil, false, newErr(ErrDeserialization, "unknown node type")
	}
}

// Remove deletes key if present. removed is true iff key was found.
func (t *MutableTree) Remove(ctx context.Context, key NonEmptyBytes) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root == nil { return false, nil }

	newRoot, removed, err := t.removeNode(ctx, t.root, key)
	if err != nil { return false, err }
	if ! removed { return false, nil }

	if newRoot == nil {
		t.root = nil
	} else {
		t.root = fullChild(newRoot)
	}

	newSize, ok := subU63(t.size, U63One)
	if ! ok { return false, newErr(ErrOverflow, "tree size accounting underflowed") }
	t.size = newSize

	return true, nil
}

func (t *MutableTree) removeNode(ctx context.Context, child *Child, key NonEmptyBytes) (Node, bool, error) {
	n, err := child.Resolve(ctx, t.ndb)
	if err != nil { return nil, false, err }

	switch node := n.(type) {
		case *LeafNode:
			if key.Equal(node.key) { return nil, true, nil }
			return node, false, nil

		case *InnerNode:
			if bytesLess(key.Bytes(), node.key.Bytes()) {
				newLeft, removed, err := t.removeNode(ctx, node.left, key)
				if err != nil || ! removed { return node, removed, err }

				rightNode, err := node.right.Resolve(ctx, t.ndb)
				if err != nil { return nil, false, err }

				if newLeft == nil { return rightNode, true, nil }

				rebuilt, err := buildInner(node.key, fullChild(newLeft), fullChild(rightNode))
				if err != nil { return nil, false, err }

				balanced, err := makeBalanced(rebuilt)
				return balanced, true, err
			}

			newRight, removed, err := t.removeNode(ctx, node.right, key)
			if err != nil || ! removed { return node, removed, err }

			leftNode, err := node.left.Resolve(ctx, t.ndb)
			if err != nil { return nil, false, err }

			if newRight == nil { return leftNode, true, nil }

			rebuilt, err := buildInner(node.key, fullChild(leftNode), fullChild(newRight))
			if err != nil { return nil, false, err }

			balanced, err := makeBalanced(rebuilt)
			return balanced, true, err

		default:
			return nil, false, newErr(ErrDeserialization, "unknown node type")
	}
}

// Save commits the working tree as a new version and returns it.
func (t *MutableTree) Save(ctx context.Context) (U63, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	workingVersion, ok := IncU63(t.version)
	if ! ok { return U63{}, newErr(ErrOverflow, "tree version exceeds U63 domain") }

	if t.root == nil {
		if err := t.ndb.SaveOverwritingEmptyRoot(ctx, workingVersion); err != nil { return U63{}, err }

		t.version = workingVersion
		t.lastSaved = newImmutableTree(nil, EmptyTreeHash, workingVersion, t.ndb)

		return workingVersion, nil
	}

	n, err := t.root.Resolve(ctx, t.ndb)
	if err != nil { return U63{}, err }

	if nk, ok := n.NodeKey(); ok {
		if err := t.ndb.SaveOverwritingReferenceRoot(ctx, workingVersion, nk); err != nil { return U63{}, err }

		hash, _ := n.Hash()
		t.version = workingVersion
		t.lastSaved = newImmutableTree(t.root, hash, workingVersion, t.ndb)

		return workingVersion, nil
	}

	nonce := U31{}

	savedRoot, rootHash, err := t.recursiveMakeSaved(ctx, n, workingVersion, &nonce)
	if err != nil { return U63{}, err }

	t.root = fullChild(savedRoot)
	t.version = workingVersion
	t.lastSaved = newImmutableTree(t.root, rootHash, workingVersion, t.ndb)

	return workingVersion, nil
}

// recursiveMakeSaved promotes a Drafted subtree to Saved in pre-order nonce assignment, hashing
//	bottom-up as each node's children become available. n is assumed Drafted; already-Saved
//	children are left untouched by resolveChildForSave.
func (t *MutableTree) recursiveMakeSaved(ctx context.Context, n Node, version U63, nonce *U31) (Node, [SHA256Len]byte, error) {
	next, ok := AddU31(*nonce, U31One)
	if ! ok { return nil, [SHA256Len]byte{}, newErr(ErrOverflow, "save nonce exceeds U31 domain") }
	*nonce = next
	thisNonce := *nonce

	switch node := n.(type) {
		case *LeafNode:
			hash := hashLeafNode(node, version)
			saved := node.withHash(version, hash).withNonce(thisNonce)

			if _, err := t.ndb.SaveNonOverwritingOneNode(ctx, saved); err != nil { return nil, hash, err }
			return saved, hash, nil

		case *InnerNode:
			_, leftHash, err := t.resolveChildForSave(ctx, node.left, version, nonce)
			if err != nil { return nil, [SHA256Len]byte{}, err }

			_, rightHash, err := t.resolveChildForSave(ctx, node.right, version, nonce)
			if err != nil { return nil, [SHA256Len]byte{}, err }

			selfHash := hashInnerNode(node, version, leftHash, rightHash)
			saved := node.withHash(version, selfHash).withNonce(thisNonce)

			if _, err := t.ndb.SaveNonOverwritingOneNode(ctx, saved); err != nil { return nil, selfHash, err }
			return saved, selfHash, nil

		default:
			return nil, [SHA256Len]byte{}, newErr(ErrSerialization, "unknown node type")
	}
}

// resolveChildForSave returns c's NodeKey and hash, promoting it to Saved in place (pre-order,
//	within the parent's own nonce sequence) if it was still Drafted.
func (t *MutableTree) resolveChildForSave(ctx context.Context, c *Child, version U63, nonce *U31) (NodeKey, [SHA256Len]byte, error) {
	n, err := c.Resolve(ctx, t.ndb)
	if err != nil { return NodeKey{}, [SHA256Len]byte{}, err }

	if nk, ok := n.NodeKey(); ok {
		hash, _ := n.Hash()
		return nk, hash, nil
	}

	saved, hash, err := t.recursiveMakeSaved(ctx, n, version, nonce)
	if err != nil { return NodeKey{}, [SHA256Len]byte{}, err }

	c.resolveMu.Lock()
	c.ref = newNodeRef(saved)
	c.part = nil
	c.resolveMu.Unlock()

	nk, _ := saved.NodeKey()
	return nk, hash, nil
}

// WithSavedRoot installs an externally-supplied Saved root as the tree's working root, persisting
//	it if not already present and verifying hash consistency if it was.
func (t *MutableTree) WithSavedRoot(ctx context.Context, root Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	nk, ok := root.NodeKey()
	if ! ok { return newErr(ErrMissingNodeKey, "root must already be saved") }

	existing, err := t.ndb.SaveNonOverwritingOneNode(ctx, root)
	if err != nil { return err }

	if existing != nil {
		if existing.Kind != FetchedDeserialized {
			return newErr(ErrInvalidChild, "existing record at node key is a root marker, not a node record")
		}

		recomputed, err := recomputeHash(ctx, t.ndb, existing.Node, nk.Version)
		if err != nil { return err }

		providedHash, _ := root.Hash()
		if recomputed != providedHash {
			return newErr(ErrConflictingRoot, "existing node at node key has a different hash")
		}
	}

	hash, _ := root.Hash()
	t.root = fullChild(root)
	t.version = nk.Version
	t.lastSaved = newImmutableTree(t.root, hash, nk.Version, t.ndb)

	return nil
}
