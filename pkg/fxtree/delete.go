package fxtree

// Update overwrites the value stored at key. It returns StatusNotFound if
// the key is absent, or StatusWrongKey if find() lands past the key's
// expected position without an exact match there.
func (t *Tree) Update(key Key, value int32) int {
	leafOffset, err := t.searchLeafByKey(key)
	if err != nil {
		return StatusNotFound
	}
	leaf, err := t.readLeaf(leafOffset)
	if err != nil {
		return StatusNotFound
	}
	idx := findInLeaf(leaf, key)
	if idx == int(leaf.N) {
		return StatusNotFound
	}
	if Compare(leaf.Children[idx].Key, key) != 0 {
		return StatusWrongKey
	}
	leaf.Children[idx].Value = value
	_ = t.writeLeaf(leafOffset, leaf)
	return StatusOK
}

// MustUpdate is the idiomatic-error convenience wrapper over Update.
func (t *Tree) MustUpdate(key Key, value int32) error {
	switch t.Update(key, value) {
	case StatusNotFound:
		return ErrNotFound
	case StatusWrongKey:
		return ErrWrongKey
	default:
		return nil
	}
}

// Remove deletes key from the tree, rebalancing by borrow or merge as
// needed. It returns StatusNotFound if key is absent.
func (t *Tree) Remove(key Key) int {
	path, leafOffset, err := t.descend(key)
	if err != nil {
		return StatusNotFound
	}
	leaf, err := t.readLeaf(leafOffset)
	if err != nil {
		return StatusNotFound
	}
	idx := findInLeaf(leaf, key)
	if idx == int(leaf.N) || Compare(leaf.Children[idx].Key, key) != 0 {
		return StatusNotFound
	}

	copy(leaf.Children[idx:leaf.N-1], leaf.Children[idx+1:leaf.N])
	leaf.N--
	leaf.Children[leaf.N] = record{}
	_ = t.writeLeaf(leafOffset, leaf)

	singleLeaf := t.meta.LeafNodeNum == 1
	if singleLeaf || leaf.N >= t.minN(false) {
		_ = t.writeMeta()
		return StatusOK
	}

	t.fixLeafUnderflow(path, leafOffset, leaf)
	_ = t.writeMeta()
	return StatusOK
}

// MustRemove is the idiomatic-error convenience wrapper over Remove.
func (t *Tree) MustRemove(key Key) error {
	if t.Remove(key) == StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// fixLeafUnderflow rebalances leaf after a deletion has dropped it below
// minN: borrow a record from a sibling with room to spare, or merge with a
// sibling and propagate the resulting parent shrinkage upward.
func (t *Tree) fixLeafUnderflow(path []int64, leafOffset int64, leaf *leafNode) {
	parentOffset := path[len(path)-1]
	parent, err := t.readInternal(parentOffset)
	if err != nil {
		return
	}
	p := mustIndexOfChild(parent, leafOffset)

	if p > 0 {
		leftOffset := parent.Children[p-1].Child
		if left, err := t.readLeaf(leftOffset); err == nil && left.N > t.minN(false) {
			borrowed := left.Children[left.N-1]
			left.Children[left.N-1] = record{}
			left.N--

			copy(leaf.Children[1:leaf.N+1], leaf.Children[0:leaf.N])
			leaf.Children[0] = borrowed
			leaf.N++

			parent.Children[p-1].Key = borrowed.Key

			_ = t.writeLeaf(leftOffset, left)
			_ = t.writeLeaf(leafOffset, leaf)
			_ = t.writeInternal(parentOffset, parent)
			return
		}
	}

	if p < int(parent.N)-1 {
		rightOffset := parent.Children[p+1].Child
		if right, err := t.readLeaf(rightOffset); err == nil && right.N > t.minN(false) {
			borrowed := right.Children[0]
			copy(right.Children[0:right.N-1], right.Children[1:right.N])
			right.Children[right.N-1] = record{}
			right.N--

			leaf.Children[leaf.N] = borrowed
			leaf.N++

			parent.Children[p].Key = right.Children[0].Key

			_ = t.writeLeaf(rightOffset, right)
			_ = t.writeLeaf(leafOffset, leaf)
			_ = t.writeInternal(parentOffset, parent)
			return
		}
	}

	var leftIdx, rightIdx int
	if p == int(parent.N)-1 {
		leftIdx, rightIdx = p-1, p
	} else {
		leftIdx, rightIdx = p, p+1
	}
	t.mergeLeaves(path[:len(path)-1], parent, parentOffset, leftIdx, rightIdx)
}

// mergeLeaves absorbs the right leaf's live records into the left leaf,
// relinks the leaf chain around the discarded right leaf, removes the
// corresponding entry from parent, and recurses upward if parent itself
// now underflows.
func (t *Tree) mergeLeaves(ancestry []int64, parent *internalNode, parentOffset int64, leftIdx, rightIdx int) {
	leftOffset := parent.Children[leftIdx].Child
	rightOffset := parent.Children[rightIdx].Child
	left, errL := t.readLeaf(leftOffset)
	right, errR := t.readLeaf(rightOffset)
	if errL != nil || errR != nil {
		return
	}

	copy(left.Children[left.N:left.N+right.N], right.Children[:right.N])
	left.N += right.N
	left.Next = right.Next
	if right.Next != 0 {
		if nextLeaf, err := t.readLeaf(right.Next); err == nil {
			nextLeaf.Prev = leftOffset
			_ = t.writeLeaf(right.Next, nextLeaf)
		}
	}
	_ = t.writeLeaf(leftOffset, left)
	t.freeLeaf()

	removeEntryAfterMerge(parent, leftIdx)
	_ = t.writeInternal(parentOffset, parent)

	t.fixInternalUnderflow(ancestry, parentOffset, parent)
}

// removeEntryAfterMerge drops the entry immediately following leftIdx,
// carrying its key forward onto leftIdx so the remaining boundary after
// left stays correct.
func removeEntryAfterMerge(parent *internalNode, leftIdx int) {
	parent.Children[leftIdx].Key = parent.Children[leftIdx+1].Key
	copy(parent.Children[leftIdx+1:parent.N-1], parent.Children[leftIdx+2:parent.N])
	parent.Children[parent.N-1] = indexEntry{}
	parent.N--
}

// fixInternalUnderflow rebalances node (found at nodeOffset, whose
// ancestors are given by ancestry, root first) after it has lost an entry
// to a merge below it. If ancestry is empty, node is the root: a root with
// a single remaining child collapses, shrinking the tree's height.
func (t *Tree) fixInternalUnderflow(ancestry []int64, nodeOffset int64, node *internalNode) {
	if len(ancestry) == 0 {
		if node.N == 1 {
			t.collapseRoot(node.Children[0].Child)
		}
		return
	}

	if node.N >= t.minN(false) {
		return
	}

	parentOffset := ancestry[len(ancestry)-1]
	rest := ancestry[:len(ancestry)-1]
	parent, err := t.readInternal(parentOffset)
	if err != nil {
		return
	}
	p := mustIndexOfChild(parent, nodeOffset)

	childrenAreLeaves := uint32(len(ancestry)+2) == t.meta.Height

	if p > 0 {
		leftOffset := parent.Children[p-1].Child
		if left, err := t.readInternal(leftOffset); err == nil && left.N > t.minN(false) {
			borrowed := left.Children[left.N-1]
			promotedKey := left.Children[left.N-2].Key
			left.Children[left.N-2].Key = Key{}
			left.Children[left.N-1] = indexEntry{}
			left.N--

			copy(node.Children[1:node.N+1], node.Children[0:node.N])
			node.Children[0] = indexEntry{Key: parent.Children[p-1].Key, Child: borrowed.Child}
			node.N++

			parent.Children[p-1].Key = promotedKey

			t.reparentOneChild(borrowed.Child, nodeOffset, childrenAreLeaves)

			_ = t.writeInternal(leftOffset, left)
			_ = t.writeInternal(nodeOffset, node)
			_ = t.writeInternal(parentOffset, parent)
			return
		}
	}

	if p < int(parent.N)-1 {
		rightOffset := parent.Children[p+1].Child
		if right, err := t.readInternal(rightOffset); err == nil && right.N > t.minN(false) {
			borrowed := right.Children[0]
			promotedKey := borrowed.Key
			copy(right.Children[0:right.N-1], right.Children[1:right.N])
			right.Children[right.N-1] = indexEntry{}
			right.N--

			node.Children[node.N-1].Key = parent.Children[p].Key
			node.Children[node.N] = indexEntry{Key: Key{}, Child: borrowed.Child}
			node.N++

			parent.Children[p].Key = promotedKey

			t.reparentOneChild(borrowed.Child, nodeOffset, childrenAreLeaves)

			_ = t.writeInternal(rightOffset, right)
			_ = t.writeInternal(nodeOffset, node)
			_ = t.writeInternal(parentOffset, parent)
			return
		}
	}

	var leftIdx, rightIdx int
	if p == int(parent.N)-1 {
		leftIdx, rightIdx = p-1, p
	} else {
		leftIdx, rightIdx = p, p+1
	}
	t.mergeInternal(rest, parent, parentOffset, leftIdx, rightIdx, childrenAreLeaves)
}

// mergeInternal absorbs the right internal node's live entries into the
// left, pulling the separating parent key down onto what was left's
// keyless rightmost slot, reparents every moved child, then removes the
// corresponding parent entry and recurses upward.
func (t *Tree) mergeInternal(ancestry []int64, parent *internalNode, parentOffset int64, leftIdx, rightIdx int, childrenAreLeaves bool) {
	leftOffset := parent.Children[leftIdx].Child
	rightOffset := parent.Children[rightIdx].Child
	left, errL := t.readInternal(leftOffset)
	right, errR := t.readInternal(rightOffset)
	if errL != nil || errR != nil {
		return
	}

	left.Children[left.N-1].Key = parent.Children[leftIdx].Key
	copy(left.Children[left.N:left.N+right.N], right.Children[:right.N])
	left.N += right.N

	_ = t.writeInternal(leftOffset, left)
	t.freeInternal()

	t.reparentChildren(left, leftOffset, childrenAreLeaves)

	removeEntryAfterMerge(parent, leftIdx)
	_ = t.writeInternal(parentOffset, parent)

	t.fixInternalUnderflow(ancestry, parentOffset, parent)
}

// reparentOneChild rewrites the Parent field of a single node moved by a
// borrow rotation.
func (t *Tree) reparentOneChild(childOffset, newParentOffset int64, childIsLeaf bool) {
	if childIsLeaf {
		if child, err := t.readLeaf(childOffset); err == nil {
			child.Parent = newParentOffset
			_ = t.writeLeaf(childOffset, child)
		}
		return
	}
	if child, err := t.readInternal(childOffset); err == nil {
		child.Parent = newParentOffset
		_ = t.writeInternal(childOffset, child)
	}
}

// collapseRoot replaces the current (now single-child) root with that
// child, shrinking the tree's height by one level. If that leaves height 1,
// the surviving child is a leaf and becomes the root directly.
func (t *Tree) collapseRoot(newRootOffset int64) {
	t.freeInternal()
	t.meta.Height--
	t.meta.RootOffset = newRootOffset

	if t.meta.Height > 1 {
		if newRoot, err := t.readInternal(newRootOffset); err == nil {
			newRoot.Parent = 0
			_ = t.writeInternal(newRootOffset, newRoot)
		}
		return
	}
	if newRoot, err := t.readLeaf(newRootOffset); err == nil {
		newRoot.Parent = 0
		_ = t.writeLeaf(newRootOffset, newRoot)
	}
}
