package mavl

import "encoding/hex"
import "testing"


func TestEmptyTreeHashIsShaOfEmptyString(t *testing.T) {
	want := "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855"
	got := hex.EncodeToString(EmptyTreeHash[:])

	if ! equalFold(got, want) {
		t.Errorf("EmptyTreeHash = %s, want %s", got, want)
	}
}

func equalFold(a, b string) bool {
	if len(a) != len(b) { return false }

	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' { ca -= 'a' - 'A' }
		if cb >= 'a' && cb <= 'z' { cb -= 'a' - 'A' }
		if ca != cb { return false }
	}

	return true
}

func TestHashLeafIsDeterministic(t *testing.T) {
	key := mustNonEmpty(t, "single")
	value := mustNonEmpty(t, "moon")
	version, _ := NewU63(1)

	a := hashLeaf(key, value, version)
	b := hashLeaf(key, value, version)

	if a != b { t.Errorf("hashLeaf is not deterministic across identical calls") }
}

func TestHashLeafVariesWithVersion(t *testing.T) {
	key := mustNonEmpty(t, "single")
	value := mustNonEmpty(t, "moon")

	v1, _ := NewU63(1)
	v2, _ := NewU63(2)

	h1 := hashLeaf(key, value, v1)
	h2 := hashLeaf(key, value, v2)

	if h1 == h2 { t.Errorf("hashLeaf must depend on version") }
}

func TestHashLeafVariesWithKeyAndValue(t *testing.T) {
	version, _ := NewU63(1)

	base := hashLeaf(mustNonEmpty(t, "k"), mustNonEmpty(t, "v"), version)
	diffKey := hashLeaf(mustNonEmpty(t, "k2"), mustNonEmpty(t, "v"), version)
	diffValue := hashLeaf(mustNonEmpty(t, "k"), mustNonEmpty(t, "v2"), version)

	if base == diffKey { t.Errorf("hashLeaf must depend on the key") }
	if base == diffValue { t.Errorf("hashLeaf must depend on the value") }
}

func TestHashInnerIsDeterministicAndDependsOnChildren(t *testing.T) {
	height := U7One
	size := U63Two
	version, _ := NewU63(3)

	leftHash := hashLeaf(mustNonEmpty(t, "a"), mustNonEmpty(t, "1"), version)
	rightHash := hashLeaf(mustNonEmpty(t, "b"), mustNonEmpty(t, "2"), version)

	h1 := hashInner(height, size, version, leftHash, rightHash)
	h2 := hashInner(height, size, version, leftHash, rightHash)

	if h1 != h2 { t.Errorf("hashInner is not deterministic") }

	swapped := hashInner(height, size, version, rightHash, leftHash)
	if h1 == swapped { t.Errorf("hashInner must be sensitive to child order") }
}

func TestHashLeafNodeAndHashInnerNodeMatchFreeFunctions(t *testing.T) {
	version, _ := NewU63(5)

	leaf := NewDraftedLeaf(mustNonEmpty(t, "k"), mustNonEmpty(t, "v"))
	if hashLeafNode(leaf, version) != hashLeaf(leaf.Key(), leaf.Value(), version) {
		t.Errorf("hashLeafNode disagrees with hashLeaf")
	}

	left := fullChild(NewDraftedLeaf(mustNonEmpty(t, "a"), mustNonEmpty(t, "1")))
	right := fullChild(NewDraftedLeaf(mustNonEmpty(t, "b"), mustNonEmpty(t, "2")))

	inner, err := buildInner(mustNonEmpty(t, "b"), left, right)
	if err != nil { t.Fatalf("buildInner: %s", err) }

	leftHash := hashLeaf(mustNonEmpty(t, "a"), mustNonEmpty(t, "1"), version)
	rightHash := hashLeaf(mustNonEmpty(t, "b"), mustNonEmpty(t, "2"), version)

	if hashInnerNode(inner, version, leftHash, rightHash) != hashInner(inner.height, inner.size, version, leftHash, rightHash) {
		t.Errorf("hashInnerNode disagrees with hashInner")
	}
}
