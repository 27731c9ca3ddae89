package mavl


//============================================= AVL Rebalance


// buildInner assembles a fresh Drafted inner node from a key and two already-Full children,
//	recomputing height and size from the invariants (height = 1 + max(...), size = left.size + right.size).
func buildInner(key NonEmptyBytes, left, right *Child) (*InnerNode, error) {
	leftNode, err := left.Full()
	if err != nil { return nil, err }

	rightNode, err := right.Full()
	if err != nil { return nil, err }

	maxH := MaxU7(leftNode.Height(), rightNode.Height())
	height, ok := AddU7(U7One, maxH)
	if ! ok { return nil, newErr(ErrOverflow, "inner node height exceeds U7 domain") }

	size, ok := AddU63(leftNode.Size(), rightNode.Size())
	if ! ok { return nil, newErr(ErrOverflow, "inner node size exceeds U63 domain") }

	return &InnerNode{ key: key, height: height, size: size, left: left, right: right }, nil
}

// childHeight returns a Full child's height, resolving it if necessary.
func childHeight(c *Child) (U7, error) {
	n, err := c.Full()
	if err != nil { return U7{}, err }

	return n.Height(), nil
}

// rotateRight performs a single right rotation at pivot (the LL case's core move): pivot's left
//	child becomes the new root, pivot itself becomes the new right subtree.
//	new_right.key = pivot.key; new_root.key = pivot.left.key.
func rotateRight(pivot *InnerNode) (*InnerNode, error) {
	leftNode, err := pivot.left.Full()
	if err != nil { return nil, err }

	left, ok := leftNode.(*InnerNode)
	if ! ok { return nil, newErr(ErrInvalidChild, "rotation pivot's left child must be an inner node") }

	newRight, err := buildInner(pivot.key, left.right, pivot.right)
	if err != nil { return nil, err }

	return buildInner(left.key, left.left, fullChild(newRight))
}

// rotateLeft performs a single left rotation at pivot (the RR case's core move): pivot's right
//	child becomes the new root, pivot itself becomes the new left subtree.
//	new_left.key = pivot.key; new_root.key = pivot.right.key.
func rotateLeft(pivot *InnerNode) (*InnerNode, error) {
	rightNode, err := pivot.right.Full()
	if err != nil { return nil, err }

	right, ok := rightNode.(*InnerNode)
	if ! ok { return nil, newErr(ErrInvalidChild, "rotation pivot's right child must be an inner node") }

	newLeft, err := buildInner(pivot.key, pivot.left, right.left)
	if err != nil { return nil, err }

	return buildInner(right.key, fullChild(newLeft), right.right)
}

// makeBalanced restores the AVL invariant at a freshly-rebuilt Drafted inner node, both of whose
//	children are already Full. If already balanced, n is returned unchanged. Otherwise one of the
//	four LL/LR/RR/RL cases applies, each producing new Drafted inner nodes with recomputed
//	height/size; the double-rotation cases (LR, RL) compose the two single rotations directly,
//	which reproduces the key-reassignment rules in one pass.
func makeBalanced(n *InnerNode) (*InnerNode, error) {
	leftNode, err := n.left.Full()
	if err != nil { return nil, err }

	rightNode, err := n.right.Full()
	if err != nil { return nil, err }

	diff := int(leftNode.Height().Get()) - int(rightNode.Height().Get())
	if diff >= -1 && diff <= 1 { return n, nil }

	if diff > 1 {
		left, ok := leftNode.(*InnerNode)
		if ! ok { return nil, newErr(ErrInvalidChild, "left-heavy pivot's left child must be an inner node") }

		llH, err := childHeight(left.left)
		if err != nil { return nil, err }

		lrH, err := childHeight(left.right)
		if err != nil { return nil, err }

		if llH.Get() >= lrH.Get() {
			return rotateRight(n)
		}

		newLeftChild, err := rotateLeft(left)
		if err != nil { return nil, err }

		pivot := &InnerNode{ key: n.key, height: n.height, size: n.size, left: fullChild(newLeftChild), right: n.right }
		return rotateRight(pivot)
	}

	right, ok := rightNode.(*InnerNode)
	if ! ok { return nil, newErr(ErrInvalidChild, "right-heavy pivot's right child must be an inner node") }

	rlH, err := childHeight(right.left)
	if err != nil { return nil, err }

	rrH, err := childHeight(right.right)
	if err != nil { return nil, err }

	if rrH.Get() >= rlH.Get() {
		return rotateLeft(n)
	}

	newRightChild, err := rotateRight(right)
	if err != nil { return nil, err }

	pivot := &InnerNode{ key: n.key, height: n.height, size: n.size, left: n.left, right: fullChild(newRightChild) }
	return rotateLeft(pivot)
}
