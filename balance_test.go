package mavl

import "testing"


func draftedLeafChild(t *testing.T, key, value string) *Child {
	t.Helper()
	return fullChild(NewDraftedLeaf(mustNonEmpty(t, key), mustNonEmpty(t, value)))
}

func mustBuildInner(t *testing.T, key string, left, right *Child) *InnerNode {
	t.Helper()

	n, err := buildInner(mustNonEmpty(t, key), left, right)
	if err != nil { t.Fatalf("buildInner: %s", err) }

	return n
}

// inOrderKeys walks a tree of already-Full children (no store access required) and returns its
//	keys in ascending order, for checking that a rotation preserves the BST's contents.
func inOrderKeys(t *testing.T, n Node) []string {
	t.Helper()

	switch node := n.(type) {
		case *LeafNode:
			return []string{ string(node.Key().Bytes()) }

		case *InnerNode:
			left, err := node.left.Full()
			if err != nil { t.Fatalf("left.Full: %s", err) }

			right, err := node.right.Full()
			if err != nil { t.Fatalf("right.Full: %s", err) }

			out := inOrderKeys(t, left)
			out = append(out, inOrderKeys(t, right)...)

			return out

		default:
			t.Fatalf("unknown node type %T", n)
			return nil
	}
}

func assertAVLBalanced(t *testing.T, n *InnerNode) {
	t.Helper()

	leftHeight, err := childHeight(n.left)
	if err != nil { t.Fatalf("childHeight: %s", err) }

	rightHeight, err := childHeight(n.right)
	if err != nil { t.Fatalf("childHeight: %s", err) }

	diff := int(leftHeight.Get()) - int(rightHeight.Get())
	if diff < -1 || diff > 1 {
		t.Errorf("result is unbalanced: left height %d, right height %d", leftHeight.Get(), rightHeight.Get())
	}
}

func TestBuildInnerComputesHeightAndSize(t *testing.T) {
	left := draftedLeafChild(t, "a", "1")
	right := draftedLeafChild(t, "b", "2")

	n := mustBuildInner(t, "b", left, right)

	if n.Height().Get() != 1 { t.Errorf("expected height 1, got %d", n.Height().Get()) }
	if n.Size().Get() != 2 { t.Errorf("expected size 2, got %d", n.Size().Get()) }
	if n.Stage() != StageDrafted { t.Errorf("buildInner must produce a Drafted node") }
}

// TestMakeBalancedLLCase builds a left-heavy tree (left subtree height 2, right height 0, and the
//	left child's own left subtree at least as tall as its right) so makeBalanced must take the pure
//	rotateRight path.
func TestMakeBalancedLLCase(t *testing.T) {
	inner1 := mustBuildInner(t, "c", draftedLeafChild(t, "a", "1"), draftedLeafChild(t, "c", "3"))
	left := mustBuildInner(t, "e", fullChild(inner1), draftedLeafChild(t, "e", "5"))

	unbalanced := mustBuildInner(t, "z", fullChild(left), draftedLeafChild(t, "z", "26"))

	before := inOrderKeys(t, unbalanced)

	balanced, err := makeBalanced(unbalanced)
	if err != nil { t.Fatalf("makeBalanced: %s", err) }

	assertAVLBalanced(t, balanced)

	if balanced.Size().Get() != unbalanced.Size().Get() {
		t.Errorf("rotation must preserve total size: before %d after %d", unbalanced.Size().Get(), balanced.Size().Get())
	}

	after := inOrderKeys(t, balanced)
	if len(after) != len(before) { t.Fatalf("key count changed: before %v after %v", before, after) }
	for i := range before {
		if before[i] != after[i] { t.Errorf("in-order contents changed: before %v after %v", before, after) }
	}
}

// TestMakeBalancedRRCase mirrors the LL case on the other side.
func TestMakeBalancedRRCase(t *testing.T) {
	inner1 := mustBuildInner(t, "v", draftedLeafChild(t, "u", "21"), draftedLeafChild(t, "v", "22"))
	right := mustBuildInner(t, "s", draftedLeafChild(t, "s", "19"), fullChild(inner1))

	unbalanced := mustBuildInner(t, "b", draftedLeafChild(t, "a", "1"), fullChild(right))

	before := inOrderKeys(t, unbalanced)

	balanced, err := makeBalanced(unbalanced)
	if err != nil { t.Fatalf("makeBalanced: %s", err) }

	assertAVLBalanced(t, balanced)

	if balanced.Size().Get() != unbalanced.Size().Get() {
		t.Errorf("rotation must preserve total size: before %d after %d", unbalanced.Size().Get(), balanced.Size().Get())
	}

	after := inOrderKeys(t, balanced)
	if len(after) != len(before) { t.Fatalf("key count changed: before %v after %v", before, after) }
	for i := range before {
		if before[i] != after[i] { t.Errorf("in-order contents changed: before %v after %v", before, after) }
	}
}

// TestMakeBalancedLRCase builds a left-right heavy shape requiring the double rotation: the left
//	child's right subtree is taller than its left, so makeBalanced must rotate left at the child
//	before rotating right at the root.
func TestMakeBalancedLRCase(t *testing.T) {
	innerLeftRight := mustBuildInner(t, "h", draftedLeafChild(t, "g", "7"), draftedLeafChild(t, "h", "8"))
	left := mustBuildInner(t, "c", draftedLeafChild(t, "a", "1"), fullChild(innerLeftRight))

	unbalanced := mustBuildInner(t, "z", fullChild(left), draftedLeafChild(t, "z", "26"))

	before := inOrderKeys(t, unbalanced)

	balanced, err := makeBalanced(unbalanced)
	if err != nil { t.Fatalf("makeBalanced: %s", err) }

	assertAVLBalanced(t, balanced)

	if balanced.Size().Get() != unbalanced.Size().Get() {
		t.Errorf("rotation must preserve total size: before %d after %d", unbalanced.Size().Get(), balanced.Size().Get())
	}

	after := inOrderKeys(t, balanced)
	if len(after) != len(before) { t.Fatalf("key count changed: before %v after %v", before, after) }
	for i := range before {
		if before[i] != after[i] { t.Errorf("in-order contents changed: before %v after %v", before, after) }
	}
}

// TestMakeBalancedRLCase mirrors the LR case.
func TestMakeBalancedRLCase(t *testing.T) {
	innerRightLeft := mustBuildInner(t, "o", draftedLeafChild(t, "n", "14"), draftedLeafChild(t, "o", "15"))
	right := mustBuildInner(t, "u", fullChild(innerRightLeft), draftedLeafChild(t, "u", "21"))

	unbalanced := mustBuildInner(t, "a", draftedLeafChild(t, "a", "1"), fullChild(right))

	before := inOrderKeys(t, unbalanced)

	balanced, err := makeBalanced(unbalanced)
	if err != nil { t.Fatalf("makeBalanced: %s", err) }

	assertAVLBalanced(t, balanced)

	if balanced.Size().Get() != unbalanced.Size().Get() {
		t.Errorf("rotation must preserve total size: before %d after %d", unbalanced.Size().Get(), balanced.Size().Get())
	}

	after := inOrderKeys(t, balanced)
	if len(after) != len(before) { t.Fatalf("key count changed: before %v after %v", before, after) }
	for i := range before {
		if before[i] != after[i] { t.Errorf("in-order contents changed: before %v after %v", before, after) }
	}
}

func TestMakeBalancedNoOpWhenAlreadyBalanced(t *testing.T) {
	left := draftedLeafChild(t, "a", "1")
	right := draftedLeafChild(t, "c", "3")

	n := mustBuildInner(t, "c", left, right)

	balanced, err := makeBalanced(n)
	if err != nil { t.Fatalf("makeBalanced: %s", err) }

	if balanced != n { t.Errorf("makeBalanced must return n unchanged when already balanced") }
}
