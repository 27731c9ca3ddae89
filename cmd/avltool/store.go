package main

import "context"
import "errors"
import "os"

import "github.com/sirgallo/mavl"
import "github.com/sirgallo/mavl/store/memstore"
import "github.com/sirgallo/mavl/store/mmapstore"

// openTree opens the latest saved version of the tree backed by dataDir, or a fresh in-memory
// store when inMemory is set. The returned closer flushes and releases any on-disk resources.
func openTree(dataDir string, inMemory bool) (*mavl.MutableTree, func() error, error) {
	ctx := context.Background()

	if inMemory {
		tree := mavl.NewMutableTree(memstore.New())
		return tree, func() error { return nil }, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil { return nil, nil, err }

	store, err := mmapstore.Open(mmapstore.Options{ Filepath: dataDir, FileName: "mavl.log" })
	if err != nil { return nil, nil, err }

	tree, err := mavl.LoadMutableTreeLatestVersion(ctx, store)
	if err != nil { store.Close(); return nil, nil, err }

	return tree, store.Close, nil
}

// argKey validates a command-line argument as tree-acceptable non-empty bytes.
func argKey(s string) (mavl.NonEmptyBytes, error) {
	v, ok := mavl.NewNonEmptyBytes([]byte(s))
	if ! ok { return mavl.NonEmptyBytes{}, errEmptyArg }

	return v, nil
}

var errEmptyArg = errors.New("argument must not be empty")
