package fxtree

// SearchRange walks the leaf chain collecting records with key in
// [left, right], writing at most max of them into the returned slice.
//
// The return values mirror the source's (&mut left, right, out_buf, max,
// &mut has_more) -> count contract: status is the count written, or -1 if
// the inputs are malformed (max <= 0, or right orders before left). If the
// scan stops because the buffer filled before reaching right, hasMore is
// true and resumeFrom is overwritten with the key to resume from on the
// next call — callers resume by passing resumeFrom back in as left.
//
// In the leaf holding right, the scan restarts its within-leaf probe with
// find(rightLeaf, left) rather than starting at that leaf's first record.
// When left and right fall in different leaves this is harmless — left
// already orders at or before every key in the right leaf, so the probe
// lands on its first record anyway — but it is kept as a literal
// reproduction of the source's behavior rather than "fixed" to begin(leaf),
// since the source's own next-call resume key can legitimately point back
// into a leaf it has already partly consumed.
func (t *Tree) SearchRange(left, right Key, max int) (out []Record, hasMore bool, resumeFrom Key, status int) {
	resumeFrom = left
	if max <= 0 || Less(right, left) {
		return nil, false, left, -1
	}

	leftLeafOffset, err := t.searchLeafByKey(left)
	if err != nil {
		return nil, false, left, -1
	}
	rightLeafOffset, err := t.searchLeafByKey(right)
	if err != nil {
		return nil, false, left, -1
	}

	out = make([]Record, 0, max)
	curOffset := leftLeafOffset
	firstLeaf := true

	for {
		leaf, err := t.readLeaf(curOffset)
		if err != nil {
			return out, false, left, -1
		}

		var startIdx int
		switch {
		case curOffset == rightLeafOffset:
			startIdx = findInLeaf(leaf, left)
		case firstLeaf:
			startIdx = findInLeaf(leaf, left)
		default:
			startIdx = 0
		}
		firstLeaf = false

		for i := startIdx; i < int(leaf.N); i++ {
			rec := leaf.Children[i]
			if curOffset == rightLeafOffset && Less(right, rec.Key) {
				return out, false, left, len(out)
			}
			if len(out) == max {
				return out, true, rec.Key, len(out)
			}
			out = append(out, Record{Key: rec.Key, Value: rec.Value})
		}

		if curOffset == rightLeafOffset || leaf.Next == 0 {
			return out, false, left, len(out)
		}
		curOffset = leaf.Next
	}
}
