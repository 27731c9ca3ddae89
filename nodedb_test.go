package mavl

import "context"
import "testing"

import "github.com/sirgallo/mavl/store/memstore"


func savedLeaf(t *testing.T, key, value string, version uint64, nonce uint32) *LeafNode {
	t.Helper()

	v, ok := NewU63(version)
	if ! ok { t.Fatalf("bad version %d", version) }

	n, ok := NewU31(nonce)
	if ! ok { t.Fatalf("bad nonce %d", nonce) }

	leaf := NewDraftedLeaf(mustNonEmpty(t, key), mustNonEmpty(t, value))
	return leaf.withHash(v, hashLeafNode(leaf, v)).withNonce(n)
}

func TestNodeDBSaveAndFetchOneNode(t *testing.T) {
	ctx := context.Background()
	ndb := NewNodeDB(memstore.New())

	leaf := savedLeaf(t, "k", "v", 1, 1)

	existed, err := ndb.SaveOverwritingOneNode(ctx, leaf)
	if err != nil { t.Fatalf("save: %s", err) }
	if existed { t.Errorf("expected no prior record") }

	nk, _ := leaf.NodeKey()
	fetched, err := ndb.FetchOneNode(ctx, nk)
	if err != nil { t.Fatalf("fetch: %s", err) }
	if fetched == nil { t.Fatalf("expected a record") }
	if fetched.Kind != FetchedDeserialized { t.Fatalf("expected FetchedDeserialized, got %v", fetched.Kind) }

	if ! fetched.Node.Key().Equal(leaf.Key()) { t.Errorf("fetched node has wrong key") }

	gotHash, ok := fetched.Node.Hash()
	if ! ok { t.Fatalf("fetched node must carry a hash") }

	wantHash, _ := leaf.Hash()
	if gotHash != wantHash { t.Errorf("fetched node hash disagrees with the saved one") }

	gotNk, ok := fetched.Node.NodeKey()
	if ! ok || gotNk != nk { t.Errorf("fetched node must be Saved at the NodeKey it was fetched by") }
}

func TestNodeDBFetchOneNodeMissing(t *testing.T) {
	ctx := context.Background()
	ndb := NewNodeDB(memstore.New())

	version, _ := NewU63(1)
	nonce, _ := NewU31(1)

	fetched, err := ndb.FetchOneNode(ctx, NodeKey{ Version: version, Nonce: nonce })
	if err != nil { t.Fatalf("fetch: %s", err) }
	if fetched != nil { t.Errorf("expected no record for an empty store") }
}

func TestNodeDBEmptyRootMarker(t *testing.T) {
	ctx := context.Background()
	ndb := NewNodeDB(memstore.New())

	version, _ := NewU63(1)
	if err := ndb.SaveOverwritingEmptyRoot(ctx, version); err != nil { t.Fatalf("save empty root: %s", err) }

	fetched, err := ndb.FetchOneNode(ctx, NodeKey{ Version: version, Nonce: mustRootNonce() })
	if err != nil { t.Fatalf("fetch: %s", err) }
	if fetched == nil || fetched.Kind != FetchedEmpty { t.Fatalf("expected FetchedEmpty, got %+v", fetched) }
}

func TestNodeDBReferenceRoot(t *testing.T) {
	ctx := context.Background()
	ndb := NewNodeDB(memstore.New())

	leaf := savedLeaf(t, "k", "v", 1, 1)
	if _, err := ndb.SaveOverwritingOneNode(ctx, leaf); err != nil { t.Fatalf("save: %s", err) }

	originalNk, _ := leaf.NodeKey()

	versionTwo, _ := NewU63(2)
	if err := ndb.SaveOverwritingReferenceRoot(ctx, versionTwo, originalNk); err != nil {
		t.Fatalf("save reference root: %s", err)
	}

	fetched, err := ndb.FetchOneNode(ctx, NodeKey{ Version: versionTwo, Nonce: mustRootNonce() })
	if err != nil { t.Fatalf("fetch: %s", err) }
	if fetched == nil || fetched.Kind != FetchedReference { t.Fatalf("expected FetchedReference, got %+v", fetched) }
	if fetched.Reference != originalNk { t.Errorf("reference root points at %+v, want %+v", fetched.Reference, originalNk) }
}

func TestNodeDBSaveNonOverwritingOneNodeReturnsExisting(t *testing.T) {
	ctx := context.Background()
	ndb := NewNodeDB(memstore.New())

	first := savedLeaf(t, "k", "v1", 1, 1)
	if existing, err := ndb.SaveNonOverwritingOneNode(ctx, first); err != nil || existing != nil {
		t.Fatalf("expected a clean first save, got existing=%+v err=%s", existing, err)
	}

	second := savedLeaf(t, "k", "v2", 1, 1)
	existing, err := ndb.SaveNonOverwritingOneNode(ctx, second)
	if err != nil { t.Fatalf("save: %s", err) }
	if existing == nil { t.Fatalf("expected the original record back") }

	if ! existing.Node.(*LeafNode).Value().Equal(first.Value()) {
		t.Errorf("SaveNonOverwritingOneNode must not overwrite an existing record")
	}
}

func TestNodeDBLatestVersionAndFetchLatestRoot(t *testing.T) {
	ctx := context.Background()
	ndb := NewNodeDB(memstore.New())

	if _, ok, err := ndb.LatestVersion(ctx); err != nil || ok {
		t.Fatalf("expected no latest version on an empty store, ok=%v err=%s", ok, err)
	}

	v1, _ := NewU63(1)
	if err := ndb.SaveOverwritingEmptyRoot(ctx, v1); err != nil { t.Fatalf("save v1: %s", err) }

	leaf := savedLeaf(t, "k", "v", 2, 1)
	if _, err := ndb.SaveOverwritingOneNode(ctx, leaf); err != nil { t.Fatalf("save v2 root: %s", err) }

	latest, ok, err := ndb.LatestVersion(ctx)
	if err != nil { t.Fatalf("latest version: %s", err) }
	if ! ok || latest.Get() != 2 { t.Fatalf("expected latest version 2, got %d (ok=%v)", latest.Get(), ok) }

	version, fetched, err := ndb.FetchLatestRootNode(ctx)
	if err != nil { t.Fatalf("fetch latest root: %s", err) }
	if version.Get() != 2 { t.Errorf("expected version 2, got %d", version.Get()) }
	if fetched == nil || fetched.Kind != FetchedDeserialized { t.Fatalf("expected FetchedDeserialized, got %+v", fetched) }
}
