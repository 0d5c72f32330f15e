package fxtree

// searchIndexChild picks the child offset an internal node routes key
// through: the first child whose separator key exceeds key, or the
// rightmost child if key is past every separator.
func searchIndexChild(n *internalNode, key Key) int64 {
	live := n.live()
	for i := 0; i < len(live)-1; i++ {
		if Less(key, live[i].Key) {
			return live[i].Child
		}
	}
	return live[len(live)-1].Child
}

// findInLeaf returns the lower-bound position of key among a leaf's live
// records: the first index whose key is >= key, or leaf.N if key is past
// every record.
func findInLeaf(leaf *leafNode, key Key) int {
	live := leaf.live()
	for i, r := range live {
		if !Less(r.Key, key) {
			return i
		}
	}
	return len(live)
}

// descend walks from the root to the leaf that would hold key, recording
// every internal node offset visited along the way (root first). The
// returned path has exactly meta.Height-1 entries, one per internal level
// above the leaf. When meta.Height == 1 the root is itself the leaf, path
// is empty, and the root offset is returned directly.
func (t *Tree) descend(key Key) (path []int64, leafOffset int64, err error) {
	offset := t.meta.RootOffset
	if t.meta.Height <= 1 {
		return nil, offset, nil
	}
	levels := t.meta.Height - 1
	path = make([]int64, 0, levels)
	for h := uint32(0); h < levels; h++ {
		path = append(path, offset)
		node, rerr := t.readInternal(offset)
		if rerr != nil {
			return nil, 0, rerr
		}
		offset = searchIndexChild(node, key)
	}
	return path, offset, nil
}

// searchLeafByKey returns just the leaf offset, for callers (Search) that
// don't need the path to ancestors.
func (t *Tree) searchLeafByKey(key Key) (int64, error) {
	_, leafOffset, err := t.descend(key)
	return leafOffset, err
}

// indexOfChild returns the position within parent's live entries whose
// Child equals childOffset, or -1 if none match. A miss means the tree's
// parent pointers are inconsistent with its structure.
func indexOfChild(parent *internalNode, childOffset int64) int {
	for i, e := range parent.live() {
		if e.Child == childOffset {
			return i
		}
	}
	return -1
}

// mustIndexOfChild is indexOfChild but panics with an InvariantViolation on
// a miss, for call sites in the rebalancing path where a parent not
// referencing its own child means the file itself is corrupt, not that the
// key was merely absent.
func mustIndexOfChild(parent *internalNode, childOffset int64) int {
	p := indexOfChild(parent, childOffset)
	if p < 0 {
		panic(newInvariantViolation("parent does not reference child offset during rebalance"))
	}
	return p
}
