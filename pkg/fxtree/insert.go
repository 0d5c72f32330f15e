package fxtree

// Insert adds key/value to the tree. It returns StatusDuplicateKey without
// modifying anything if key is already present.
func (t *Tree) Insert(key Key, value int32) int {
	path, leafOffset, err := t.descend(key)
	if err != nil {
		return StatusNotFound
	}
	leaf, err := t.readLeaf(leafOffset)
	if err != nil {
		return StatusNotFound
	}

	idx := findInLeaf(leaf, key)
	if idx < int(leaf.N) && Compare(leaf.Children[idx].Key, key) == 0 {
		return StatusDuplicateKey
	}

	newRec := record{Key: key, Value: value}
	if leaf.N < t.meta.Order {
		insertRecordInPlace(leaf, idx, newRec)
		_ = t.writeLeaf(leafOffset, leaf)
		_ = t.writeMeta()
		return StatusOK
	}

	t.splitLeafAndInsert(path, leafOffset, leaf, idx, newRec)
	_ = t.writeMeta()
	return StatusOK
}

// MustInsert is the idiomatic-error convenience wrapper over Insert.
func (t *Tree) MustInsert(key Key, value int32) error {
	switch t.Insert(key, value) {
	case StatusDuplicateKey:
		return ErrDuplicateKey
	default:
		return nil
	}
}

func insertRecordInPlace(leaf *leafNode, idx int, r record) {
	copy(leaf.Children[idx+1:leaf.N+1], leaf.Children[idx:leaf.N])
	leaf.Children[idx] = r
	leaf.N++
}

func insertEntryInPlace(parent *internalNode, p int, sepKey Key, newChild int64) {
	oldKeyP := parent.Children[p].Key
	copy(parent.Children[p+2:parent.N+1], parent.Children[p+1:parent.N])
	parent.Children[p+1] = indexEntry{Key: oldKeyP, Child: newChild}
	parent.Children[p].Key = sepKey
	parent.N++
}

// splitLeafAndInsert handles the case where leaf is already at capacity.
// The split point is chosen over the existing order records alone (point =
// n/2, advanced by one if the new key sorts after children[point]), the
// tail moves to a freshly allocated right leaf, the leaf chain is relinked
// around it, and only then is the new record inserted into whichever half
// it belongs to. The new separator is finally propagated up through path.
func (t *Tree) splitLeafAndInsert(path []int64, leafOffset int64, leaf *leafNode, idx int, newRec record) {
	n := leaf.N
	point := n / 2
	if Less(leaf.Children[point].Key, newRec.Key) {
		point++
	}

	newLeafOffset, newLeaf := t.allocLeaf()
	newLeaf.Parent = leaf.Parent
	newLeaf.Next = leaf.Next
	newLeaf.Prev = leafOffset
	rightCount := n - point
	copy(newLeaf.Children[:rightCount], leaf.Children[point:n])
	newLeaf.N = rightCount

	if leaf.Next != 0 {
		if nextLeaf, err := t.readLeaf(leaf.Next); err == nil {
			nextLeaf.Prev = newLeafOffset
			_ = t.writeLeaf(leaf.Next, nextLeaf)
		}
	}

	leaf.Next = newLeafOffset
	for i := int(point); i < len(leaf.Children); i++ {
		leaf.Children[i] = record{}
	}
	leaf.N = point

	if idx < int(point) {
		insertRecordInPlace(leaf, idx, newRec)
	} else {
		insertRecordInPlace(newLeaf, idx-int(point), newRec)
	}

	_ = t.writeLeaf(leafOffset, leaf)
	_ = t.writeLeaf(newLeafOffset, newLeaf)

	sepKey := newLeaf.Children[0].Key
	t.insertIntoParent(path, leafOffset, sepKey, newLeafOffset, true)
}

// insertIntoParent propagates a new (separator key, child offset) pair into
// the last internal node on path, splitting and recursing toward the root
// as needed. When path is empty, afterChild is the current root (a bare
// leaf on its first split, or an internal root that has just overflowed)
// and a fresh internal root is grown above it. childrenAreLeaves describes
// the node at path's tail: whether its children are leaves (true) or
// internal nodes (false), which determines how reparenting is done if that
// node splits.
func (t *Tree) insertIntoParent(path []int64, afterChild int64, sepKey Key, newChild int64, childrenAreLeaves bool) {
	if len(path) == 0 {
		t.growRoot(afterChild, sepKey, newChild, childrenAreLeaves)
		return
	}
	parentOffset := path[len(path)-1]
	rest := path[:len(path)-1]

	parent, err := t.readInternal(parentOffset)
	if err != nil {
		return
	}

	if parent.N < t.meta.Order {
		p := mustIndexOfChild(parent, afterChild)
		insertEntryInPlace(parent, p, sepKey, newChild)
		_ = t.writeInternal(parentOffset, parent)
		return
	}

	// Split point and fix-up over the existing order entries, mirroring
	// the leaf case but promoting the middle key to the grandparent
	// instead of copying it: point = (n-1)/2, advance if sepKey sorts
	// after children[point], then back off one if it's still strictly
	// less than the (advanced) children[point].
	n := parent.N
	point := (n - 1) / 2
	placeRight := Less(parent.Children[point].Key, sepKey)
	if placeRight {
		point++
	}
	if placeRight && Less(sepKey, parent.Children[point].Key) {
		point--
	}
	middleKey := parent.Children[point].Key
	parent.Children[point].Key = Key{}

	newRightOffset, newRight := t.allocInternal()
	newRight.Parent = parent.Parent
	rightCount := n - point - 1
	copy(newRight.Children[:rightCount], parent.Children[point+1:n])
	newRight.N = rightCount

	for i := int(point) + 1; i < len(parent.Children); i++ {
		parent.Children[i] = indexEntry{}
	}
	parent.N = point + 1

	if lp := indexOfChild(parent, afterChild); lp >= 0 {
		insertEntryInPlace(parent, lp, sepKey, newChild)
	} else {
		rp := mustIndexOfChild(newRight, afterChild)
		insertEntryInPlace(newRight, rp, sepKey, newChild)
	}

	t.reparentChildren(newRight, newRightOffset, childrenAreLeaves)

	_ = t.writeInternal(parentOffset, parent)
	_ = t.writeInternal(newRightOffset, newRight)

	if len(rest) == 0 {
		t.growRoot(parentOffset, middleKey, newRightOffset, false)
		return
	}
	t.insertIntoParent(rest, parentOffset, middleKey, newRightOffset, false)
}

// reparentChildren rewrites the Parent field of every live child of node to
// newParentOffset. Used after an internal-node split moves a run of
// children into a freshly allocated sibling.
func (t *Tree) reparentChildren(node *internalNode, newParentOffset int64, childrenAreLeaves bool) {
	for _, e := range node.live() {
		if childrenAreLeaves {
			if child, err := t.readLeaf(e.Child); err == nil {
				child.Parent = newParentOffset
				_ = t.writeLeaf(e.Child, child)
			}
		} else {
			if child, err := t.readInternal(e.Child); err == nil {
				child.Parent = newParentOffset
				_ = t.writeInternal(e.Child, child)
			}
		}
	}
}

// growRoot builds a fresh two-child root above oldRootOffset/newRightOffset
// and bumps the tree's height. Called whenever the current root level —
// a bare leaf splitting for the first time, or an internal root that has
// just overflowed — has no parent of its own to absorb the new separator.
// childrenAreLeaves picks which node type oldRootOffset/newRightOffset are,
// so their Parent fields can be patched to point at the new root.
func (t *Tree) growRoot(oldRootOffset int64, promotedKey Key, newRightOffset int64, childrenAreLeaves bool) {
	newRootOffset, newRoot := t.allocInternal()
	newRoot.Children[0] = indexEntry{Key: promotedKey, Child: oldRootOffset}
	newRoot.Children[1] = indexEntry{Key: Key{}, Child: newRightOffset}
	newRoot.N = 2

	t.meta.RootOffset = newRootOffset
	t.meta.Height++
	_ = t.writeInternal(newRootOffset, newRoot)

	if childrenAreLeaves {
		if oldLeaf, err := t.readLeaf(oldRootOffset); err == nil {
			oldLeaf.Parent = newRootOffset
			_ = t.writeLeaf(oldRootOffset, oldLeaf)
		}
		if newLeaf, err := t.readLeaf(newRightOffset); err == nil {
			newLeaf.Parent = newRootOffset
			_ = t.writeLeaf(newRightOffset, newLeaf)
		}
		return
	}

	if oldRoot, err := t.readInternal(oldRootOffset); err == nil {
		oldRoot.Parent = newRootOffset
		_ = t.writeInternal(oldRootOffset, oldRoot)
	}
	if newRight, err := t.readInternal(newRightOffset); err == nil {
		newRight.Parent = newRootOffset
		_ = t.writeInternal(newRightOffset, newRight)
	}
}
