// Package mavl implements an immutable, versioned, Merkleized AVL tree
// persisted over a generic ordered key-value store.
//
// A MutableTree is the working handle: Insert and Remove build an
// in-memory, path-copied DAG of Drafted nodes on top of whatever is
// already Saved, and Save commits the working tree as a new version
// addressable by a SHA-256 root hash. An ImmutableTree is a read-only,
// shareable handle onto one already-saved version.
//
// Nodes are shared by reference across versions: a Save only ever
// serializes the nodes that changed since the last save, and older
// versions remain independently readable through their own root.
package mavl
