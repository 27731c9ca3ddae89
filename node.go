package mavl

import "bytes"
import "context"
import "sync"


//============================================= Node Representation


// Stage is the lifecycle position of a node: Drafted (working, unhashed), Hashed (committed to a
//	version and a Merkle hash), or Saved (additionally assigned a nonce, and so addressable by a
//	NodeKey and persisted).
type Stage int

const (
	StageDrafted Stage = iota
	StageHashed
	StageSaved
)

func (s Stage) String() string {
	switch s {
		case StageDrafted: return "drafted"
		case StageHashed: return "hashed"
		case StageSaved: return "saved"
		default: return "unknown"
	}
}

// stageInfo carries the optional hash/version/nonce a node picks up as it moves through its
//	lifecycle. Operations that require a hash (serialize, compute a parent's hash) check Stage()
//	first and fail with a precondition error rather than read zero-valued fields.
type stageInfo struct {
	stage   Stage
	version U63
	hash    [SHA256Len]byte
	nonce   U31
}

func (s stageInfo) Version() (U63, bool) {
	if s.stage == StageDrafted { return U63{}, false }
	return s.version, true
}

func (s stageInfo) Hash() ([SHA256Len]byte, bool) {
	if s.stage == StageDrafted { return [SHA256Len]byte{}, false }
	return s.hash, true
}

func (s stageInfo) NodeKey() (NodeKey, bool) {
	if s.stage != StageSaved { return NodeKey{}, false }
	return NodeKey{ Version: s.version, Nonce: s.nonce }, true
}

func hashedInfo(version U63, hash [SHA256Len]byte) stageInfo {
	return stageInfo{ stage: StageHashed, version: version, hash: hash }
}

func savedInfo(version U63, hash [SHA256Len]byte, nonce U31) stageInfo {
	return stageInfo{ stage: StageSaved, version: version, hash: hash, nonce: nonce }
}

// Node is the common read surface of LeafNode and InnerNode: the sum type the tree is built from.
type Node interface {
	Key() NonEmptyBytes
	Height() U7
	Size() U63
	Stage() Stage
	Version() (U63, bool)
	Hash() ([SHA256Len]byte, bool)
	NodeKey() (NodeKey, bool)
	isLeaf() bool
}


//============================================= Leaf Node


// LeafNode holds a key-value pair. Height is always 0 and size is always 1, by definition.
type LeafNode struct {
	key   NonEmptyBytes
	value NonEmptyBytes
	info  stageInfo
}

// NewDraftedLeaf creates a fresh, unhashed leaf. This is how Insert introduces a new key.
func NewDraftedLeaf(key, value NonEmptyBytes) *LeafNode {
	return &LeafNode{ key: key, value: value }
}

func (l *LeafNode) Key() NonEmptyBytes          { return l.key }
func (l *LeafNode) Value() NonEmptyBytes        { return l.value }
func (l *LeafNode) Height() U7                  { return U7Min }
func (l *LeafNode) Size() U63                   { return U63One }
func (l *LeafNode) Stage() Stage                { return l.info.stage }
func (l *LeafNode) Version() (U63, bool)        { return l.info.Version() }
func (l *LeafNode) Hash() ([SHA256Len]byte, bool) { return l.info.Hash() }
func (l *LeafNode) NodeKey() (NodeKey, bool)    { return l.info.NodeKey() }
func (l *LeafNode) isLeaf() bool                { return true }

// withHash returns a copy of l promoted to Hashed at version with the given Merkle hash.
func (l *LeafNode) withHash(version U63, hash [SHA256Len]byte) *LeafNode {
	return &LeafNode{ key: l.key, value: l.value, info: hashedInfo(version, hash) }
}

// withNonce returns a copy of l promoted to Saved with the given nonce. l must already be Hashed.
func (l *LeafNode) withNonce(nonce U31) *LeafNode {
	version, _ := l.info.Version()
	hash, _ := l.info.Hash()

	return &LeafNode{ key: l.key, value: l.value, info: savedInfo(version, hash, nonce) }
}

// leafSizeConstant is the historical varint(2) emitted in place of a leaf's semantic size (1).
//	It is part of the wire format and is never derived from state; see node_test.go.
const leafSizeConstant = 2

// encode appends the Leaf wire format to buf: 0x00 0x02 ‖ varint-prefixed(key) ‖ varint-prefixed(value).
func (l *LeafNode) encode(buf []byte) []byte {
	buf = putUvarint(buf, 0)
	buf = putUvarint(buf, leafSizeConstant)
	buf = putLengthPrefixedNonEmpty(buf, l.key)
	buf = putLengthPrefixedNonEmpty(buf, l.value)

	return buf
}

// decodeLeaf parses a Leaf wire payload whose leading height varint has already been consumed and
//	found to be 0.
func decodeLeaf(r *bytes.Reader) (leaf *LeafNode, err error) {
	defer func() {
		if p := recover(); p != nil {
			leaf = nil
			err = newErr(ErrDeserialization, "malformed leaf node payload")
		}
	}()

	size, err := readUvarint(r)
	if err != nil { return nil, err }
	if size != leafSizeConstant { return nil, newErr(ErrDeserialization, "leaf size constant must be 2") }

	key, err := readLengthPrefixedNonEmpty(r)
	if err != nil { return nil, err }

	value, err := readLengthPrefixedNonEmpty(r)
	if err != nil { return nil, err }

	return &LeafNode{ key: key, value: value }, nil
}


//============================================= Inner Node


// InnerNode is a branch node: a BST separator key plus two children, with height/size maintained
//	as AVL invariants (see balance.go).
type InnerNode struct {
	key    NonEmptyBytes
	height U7
	size   U63
	left   *Child
	right  *Child
	info   stageInfo
}

// InnerNodeBuilder assembles a Drafted InnerNode field by field, mirroring the shape of a builder
//	pattern without importing one (the pack carries no generic builder library).
type InnerNodeBuilder struct {
	key    NonEmptyBytes
	height U7
	size   U63
	left   *Child
	right  *Child
}

func NewInnerNodeBuilder() *InnerNodeBuilder { return &InnerNodeBuilder{} }

func (b *InnerNodeBuilder) Key(key NonEmptyBytes) *InnerNodeBuilder   { b.key = key; return b }
func (b *InnerNodeBuilder) Height(h U7) *InnerNodeBuilder             { b.height = h; return b }
func (b *InnerNodeBuilder) Size(s U63) *InnerNodeBuilder              { b.size = s; return b }
func (b *InnerNodeBuilder) Left(c *Child) *InnerNodeBuilder           { b.left = c; return b }
func (b *InnerNodeBuilder) Right(c *Child) *InnerNodeBuilder          { b.right = c; return b }

func (b *InnerNodeBuilder) Build() *InnerNode {
	return &InnerNode{ key: b.key, height: b.height, size: b.size, left: b.left, right: b.right }
}

func (n *InnerNode) Key() NonEmptyBytes          { return n.key }
func (n *InnerNode) Height() U7                  { return n.height }
func (n *InnerNode) Size() U63                   { return n.size }
func (n *InnerNode) Stage() Stage                { return n.info.stage }
func (n *InnerNode) Version() (U63, bool)        { return n.info.Version() }
func (n *InnerNode) Hash() ([SHA256Len]byte, bool) { return n.info.Hash() }
func (n *InnerNode) NodeKey() (NodeKey, bool)    { return n.info.NodeKey() }
func (n *InnerNode) isLeaf() bool                { return false }
func (n *InnerNode) Left() *Child                { return n.left }
func (n *InnerNode) Right() *Child                { return n.right }

// withHash returns a copy of n promoted to Hashed at version with the given Merkle hash.
func (n *InnerNode) withHash(version U63, hash [SHA256Len]byte) *InnerNode {
	return &InnerNode{ key: n.key, height: n.height, size: n.size, left: n.left, right: n.right, info: hashedInfo(version, hash) }
}

// withNonce returns a copy of n promoted to Saved with the given nonce. n must already be Hashed.
func (n *InnerNode) withNonce(nonce U31) *InnerNode {
	version, _ := n.info.Version()
	hash, _ := n.info.Hash()

	return &InnerNode{ key: n.key, height: n.height, size: n.size, left: n.left, right: n.right, info: savedInfo(version, hash, nonce) }
}

// legacyModeByte is the reserved trailing byte of the Inner wire format; any other value is rejected.
const legacyModeByte = 0x00

// encode appends the Inner wire format to buf. n must be Hashed (its own hash is part of the
//	payload) and both children must be Saved (only their NodeKeys are embedded).
func (n *InnerNode) encode(buf []byte) ([]byte, error) {
	hash, ok := n.Hash()
	if ! ok { return nil, newErr(ErrSerialization, "inner node must be hashed before it can be serialized") }

	leftNk, ok := n.left.savedKey()
	if ! ok { return nil, newErr(ErrSerialization, "left child must be saved before the parent can be serialized") }

	rightNk, ok := n.right.savedKey()
	if ! ok { return nil, newErr(ErrSerialization, "right child must be saved before the parent can be serialized") }

	buf = putUvarint(buf, uint64(n.height.Get()))
	buf = putUvarint(buf, n.size.Get())
	buf = putLengthPrefixedNonEmpty(buf, n.key)
	buf = putHash(buf, hash)
	buf = append(buf, legacyModeByte)
	buf = leftNk.serialize(buf)
	buf = rightNk.serialize(buf)

	return buf, nil
}

// decodeInner parses an Inner wire payload given its already-consumed leading height varint.
func decodeInner(r *bytes.Reader, height uint64) (inner *InnerNode, err error) {
	defer func() {
		if p := recover(); p != nil {
			inner = nil
			err = newErr(ErrDeserialization, "malformed inner node payload")
		}
	}()

	h, ok := NewU7(uint8(height))
	if ! ok || height > uint64(U7Max) { return nil, newErr(ErrOverflow, "inner node height out of U7 domain") }

	sizeU, err := readUvarint(r)
	if err != nil { return nil, err }

	size, ok := NewU63(sizeU)
	if ! ok { return nil, newErr(ErrOverflow, "inner node size out of U63 domain") }

	key, err := readLengthPrefixedNonEmpty(r)
	if err != nil { return nil, err }

	hash, err := readHash(r)
	if err != nil { return nil, err }

	mode, merr := r.ReadByte()
	if merr != nil { return nil, newErr(ErrDeserialization, "inner node payload truncated before mode byte") }
	if mode != legacyModeByte { return nil, newErr(ErrDeserialization, "invalid mode byte") }

	leftNk, err := deserializeNodeKey(r)
	if err != nil { return nil, err }

	rightNk, err := deserializeNodeKey(r)
	if err != nil { return nil, err }

	return &InnerNode{
		key: key,
		height: h,
		size: size,
		left: partChild(leftNk),
		right: partChild(rightNk),
		info: hashedInfo(U63{}, hash),
	}, nil
}

// decodeNode parses any Saved node's wire payload, dispatching on the leading height varint:
//	0 always means Leaf (a real Inner node's minimum possible height is 1).
func decodeNode(data []byte) (Node, error) {
	r := bytes.NewReader(data)

	height, err := readUvarint(r)
	if err != nil { return nil, err }

	if height == 0 { return decodeLeaf(r) }
	return decodeInner(r, height)
}


//============================================= Child Pointers


// nodeRef guards a Full child's node behind a reader-writer lock, per the concurrency model:
//	concurrent readers are safe, and a panic while the lock is held surfaces PoisonedLock from the
//	next operation that touches this node instead of deadlocking or silently degrading.
type nodeRef struct {
	mu       sync.RWMutex
	node     Node
	poisoned bool
}

func newNodeRef(n Node) *nodeRef { return &nodeRef{ node: n } }

func (r *nodeRef) withRLock(fn func(Node) error) (err error) {
	if r.poisoned { return sentinel(ErrPoisonedLock) }

	defer func() {
		if p := recover(); p != nil {
			r.poisoned = true
			err = sentinel(ErrPoisonedLock)
		}
	}()

	r.mu.RLock()
	defer r.mu.RUnlock()

	return fn(r.node)
}

func (r *nodeRef) get() (Node, error) {
	var n Node
	err := r.withRLock(func(inner Node) error { n = inner; return nil })
	return n, err
}

// Child is either Full (an in-memory owned handle to a child node) or Part (only a NodeKey,
//	unresolved). Loading a Part yields a Full by fetching and deserializing from the node DB.
type Child struct {
	resolveMu sync.Mutex
	ref       *nodeRef
	part      *NodeKey
}

func fullChild(n Node) *Child  { return &Child{ ref: newNodeRef(n) } }
func partChild(nk NodeKey) *Child { return &Child{ part: &nk } }

func (c *Child) IsFull() bool { return c.ref != nil }
func (c *Child) IsPart() bool { return c.part != nil }

// PartKey returns the NodeKey of an unresolved Part child.
func (c *Child) PartKey() (NodeKey, bool) {
	if c.part == nil { return NodeKey{}, false }
	return *c.part, true
}

// Full returns the resolved node of a Full child.
func (c *Child) Full() (Node, error) {
	if c.ref == nil { return nil, newErr(ErrInvalidChild, "child is not resolved to a full node") }
	return c.ref.get()
}

// Resolve returns the Full node for c, fetching and deserializing it from ndb and caching the
//	result in place if c was Part. A reference-root or empty-root record found at a child's
//	NodeKey is InvalidChild: those records only ever belong at a version's root slot.
func (c *Child) Resolve(ctx context.Context, ndb *NodeDB) (Node, error) {
	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()

	if c.ref != nil { return c.ref.get() }

	fetched, err := ndb.FetchOneNode(ctx, *c.part)
	if err != nil { return nil, err }
	if fetched == nil { return nil, newErr(ErrChildNotFound, "child node key absent from store") }
	if fetched.Kind != FetchedDeserialized {
		return nil, newErr(ErrInvalidChild, "child resolved to a root marker instead of a node record")
	}

	c.ref = newNodeRef(fetched.Node)
	c.part = nil

	return fetched.Node, nil
}

// savedKey returns the NodeKey of a child, resolving through a Full ref if necessary. Both Full
//	(already-Saved) and Part children carry a NodeKey; only a Full-but-Drafted/Hashed child lacks one.
func (c *Child) savedKey() (NodeKey, bool) {
	if c.part != nil { return *c.part, true }

	n, err := c.Full()
	if err != nil { return NodeKey{}, false }

	return n.NodeKey()
}
