package fxtree

import (
	"path/filepath"
	"testing"
)

func openTestTree(t *testing.T) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.fxt")
	tree, err := OpenOrder(path, true, 4)
	if err != nil {
		t.Fatalf("OpenOrder: %v", err)
	}
	return tree
}

func TestEmptyTree(t *testing.T) {
	tree := openTestTree(t)

	if status, _ := tree.Search(NewKey("a")); status != StatusNotFound {
		t.Fatalf("expected NotFound on empty tree, got %d", status)
	}
	if status := tree.Remove(NewKey("a")); status != StatusNotFound {
		t.Fatalf("expected NotFound removing from empty tree, got %d", status)
	}
	if status := tree.Update(NewKey("a"), 1); status != StatusNotFound {
		t.Fatalf("expected NotFound updating empty tree, got %d", status)
	}
}

func leafChainKeys(t *testing.T, tree *Tree) []string {
	t.Helper()
	offset := tree.meta.LeafOffset
	// Walk from the leftmost leaf regardless of meta.LeafOffset bookkeeping:
	// descend the tree with the empty key isn't meaningful here, so instead
	// locate the leftmost leaf by following Prev until it hits zero starting
	// from any known leaf (the one holding the smallest key we inserted).
	leaf, err := tree.readLeaf(offset)
	if err != nil {
		t.Fatalf("readLeaf: %v", err)
	}
	for leaf.Prev != 0 {
		offset = leaf.Prev
		leaf, err = tree.readLeaf(offset)
		if err != nil {
			t.Fatalf("readLeaf: %v", err)
		}
	}

	var out []string
	for {
		for i := 0; i < int(leaf.N); i++ {
			out = append(out, leaf.Children[i].Key.String())
		}
		if leaf.Next == 0 {
			break
		}
		leaf, err = tree.readLeaf(leaf.Next)
		if err != nil {
			t.Fatalf("readLeaf: %v", err)
		}
	}
	return out
}

func TestSingleLeaf(t *testing.T) {
	tree := openTestTree(t)

	tree.Insert(NewKey("a"), 1)
	tree.Insert(NewKey("b"), 2)
	tree.Insert(NewKey("c"), 3)

	if status, value := tree.Search(NewKey("b")); status != StatusOK || value != 2 {
		t.Fatalf("expected (0,2), got (%d,%d)", status, value)
	}
	if tree.meta.Height != 1 {
		t.Fatalf("expected height 1, got %d", tree.meta.Height)
	}

	chain := leafChainKeys(t, tree)
	want := []string{"a", "b", "c"}
	if !stringSlicesEqual(chain, want) {
		t.Fatalf("expected leaf chain %v, got %v", want, chain)
	}
}

func TestFirstSplit(t *testing.T) {
	tree := openTestTree(t)

	tree.Insert(NewKey("a"), 1)
	tree.Insert(NewKey("b"), 2)
	tree.Insert(NewKey("c"), 3)
	tree.Insert(NewKey("d"), 4)
	tree.Insert(NewKey("e"), 5)

	if tree.meta.Height != 2 {
		t.Fatalf("expected height 2 after first split, got %d", tree.meta.Height)
	}
	if tree.meta.LeafNodeNum != 2 {
		t.Fatalf("expected 2 leaves after first split, got %d", tree.meta.LeafNodeNum)
	}

	root, err := tree.readInternal(tree.meta.RootOffset)
	if err != nil {
		t.Fatalf("readInternal: %v", err)
	}
	if root.N != 2 {
		t.Fatalf("expected root with 2 children, got %d", root.N)
	}

	rightLeaf, err := tree.readLeaf(root.Children[1].Child)
	if err != nil {
		t.Fatalf("readLeaf: %v", err)
	}
	if root.Children[0].Key != rightLeaf.Children[0].Key {
		t.Fatalf("expected root separator to equal right leaf's first key")
	}

	chain := leafChainKeys(t, tree)
	want := []string{"a", "b", "c", "d", "e"}
	if !stringSlicesEqual(chain, want) {
		t.Fatalf("expected leaf chain %v, got %v", want, chain)
	}
}

func TestDuplicateInsert(t *testing.T) {
	tree := openTestTree(t)
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		tree.Insert(NewKey(k), int32(i+1))
	}

	if status := tree.Insert(NewKey("c"), 99); status != StatusDuplicateKey {
		t.Fatalf("expected DuplicateKey, got %d", status)
	}
	if status, value := tree.Search(NewKey("c")); status != StatusOK || value != 3 {
		t.Fatalf("expected (0,3) unchanged, got (%d,%d)", status, value)
	}
}

func TestUpdateAndRemoveRoundTrip(t *testing.T) {
	tree := openTestTree(t)
	tree.Insert(NewKey("k"), 10)

	if status := tree.Update(NewKey("k"), 20); status != StatusOK {
		t.Fatalf("expected update OK, got %d", status)
	}
	if status, value := tree.Search(NewKey("k")); status != StatusOK || value != 20 {
		t.Fatalf("expected (0,20), got (%d,%d)", status, value)
	}

	if status := tree.Remove(NewKey("k")); status != StatusOK {
		t.Fatalf("expected remove OK, got %d", status)
	}
	if status, _ := tree.Search(NewKey("k")); status != StatusNotFound {
		t.Fatalf("expected NotFound after remove, got %d", status)
	}
	if status := tree.Remove(NewKey("k")); status != StatusNotFound {
		t.Fatalf("expected second remove to report NotFound, got %d", status)
	}
}

func TestBorrowOnUnderflow(t *testing.T) {
	tree := openTestTree(t)
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		tree.Insert(NewKey(k), int32(i+1))
	}
	// a,b,c,d,e on order 4 splits the existing 4-record leaf [a,b,c,d] at
	// point = n/2 = 2, advanced to 3 since "e" sorts after children[2]="c":
	// left=[a,b,c], right=[d,e].
	root, err := tree.readInternal(tree.meta.RootOffset)
	if err != nil {
		t.Fatalf("readInternal: %v", err)
	}
	leftOffset := root.Children[0].Child
	rightOffset := root.Children[1].Child

	left, err := tree.readLeaf(leftOffset)
	if err != nil || left.N != 3 {
		t.Fatalf("expected left leaf size 3, got %d (err %v)", left.N, err)
	}
	right, err := tree.readLeaf(rightOffset)
	if err != nil || right.N != 2 {
		t.Fatalf("expected right leaf size 2, got %d (err %v)", right.N, err)
	}

	// Removing "e" drops the right leaf to size 1, below the order-4
	// minimum of 2, with the left leaf (size 3) able to lend a key.
	if status := tree.Remove(NewKey("e")); status != StatusOK {
		t.Fatalf("expected remove OK, got %d", status)
	}

	left, err = tree.readLeaf(leftOffset)
	if err != nil {
		t.Fatalf("readLeaf: %v", err)
	}
	right, err = tree.readLeaf(rightOffset)
	if err != nil {
		t.Fatalf("readLeaf: %v", err)
	}
	if left.N != 2 || right.N != 2 {
		t.Fatalf("expected borrow to leave both leaves at size 2, got left=%d right=%d", left.N, right.N)
	}

	root, err = tree.readInternal(tree.meta.RootOffset)
	if err != nil {
		t.Fatalf("readInternal: %v", err)
	}
	if root.Children[0].Key != right.Children[0].Key {
		t.Fatalf("expected parent separator to track right leaf's new first key")
	}

	chain := leafChainKeys(t, tree)
	want := []string{"a", "b", "c", "d"}
	if !stringSlicesEqual(chain, want) {
		t.Fatalf("expected leaf chain %v, got %v", want, chain)
	}
}

func TestMergeAndRootCollapse(t *testing.T) {
	tree := openTestTree(t)
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		tree.Insert(NewKey(k), int32(i+1))
	}
	// a,b,c,d,e on order 4 splits into left=[a,b,c] and right=[d,e], height 2.
	if status := tree.Remove(NewKey("e")); status != StatusOK {
		t.Fatalf("expected remove OK, got %d", status)
	}
	// Removing "e" underflows the right leaf and borrows "c" from the left,
	// leaving [a,b] and [c,d], both at the order-4 minimum of 2: a stable,
	// unmerged state.
	if tree.meta.Height != 2 || tree.meta.LeafNodeNum != 2 {
		t.Fatalf("expected stable 2-leaf tree, got height=%d leaves=%d", tree.meta.Height, tree.meta.LeafNodeNum)
	}

	internalsBefore := tree.meta.InternalNodeNum
	// Deleting "d" drops the right leaf to size 1, below the minimum with no
	// sibling able to lend a key, forcing a merge that empties the root.
	if status := tree.Remove(NewKey("d")); status != StatusOK {
		t.Fatalf("expected remove OK, got %d", status)
	}

	if tree.meta.Height != 1 {
		t.Fatalf("expected root collapse to height 1, got %d", tree.meta.Height)
	}
	if tree.meta.InternalNodeNum >= internalsBefore {
		t.Fatalf("expected internal_node_num to decrease, before=%d after=%d", internalsBefore, tree.meta.InternalNodeNum)
	}

	chain := leafChainKeys(t, tree)
	want := []string{"a", "b", "c"}
	if !stringSlicesEqual(chain, want) {
		t.Fatalf("expected leaf chain %v, got %v", want, chain)
	}

	if status := tree.Remove(NewKey("c")); status != StatusOK {
		t.Fatalf("expected remove OK on the now-single leaf, got %d", status)
	}
	chain = leafChainKeys(t, tree)
	want = []string{"a", "b"}
	if !stringSlicesEqual(chain, want) {
		t.Fatalf("expected leaf chain %v, got %v", want, chain)
	}
}

func TestSearchRange(t *testing.T) {
	tree := openTestTree(t)
	tree.Insert(NewKey("aa"), 1)
	tree.Insert(NewKey("bb"), 2)
	tree.Insert(NewKey("cc"), 3)
	tree.Insert(NewKey("dd"), 4)

	records, hasMore, _, status := tree.SearchRange(NewKey("bb"), NewKey("cc"), 10)
	if status < 0 {
		t.Fatalf("expected nonnegative status, got %d", status)
	}
	if hasMore {
		t.Fatal("expected has_more=false with max=10")
	}
	if !valuesEqual(records, []int32{2, 3}) {
		t.Fatalf("expected values [2,3], got %v", records)
	}

	records, hasMore, resume, status := tree.SearchRange(NewKey("bb"), NewKey("cc"), 1)
	if status < 0 {
		t.Fatalf("expected nonnegative status, got %d", status)
	}
	if !hasMore {
		t.Fatal("expected has_more=true with max=1")
	}
	if !valuesEqual(records, []int32{2}) {
		t.Fatalf("expected values [2], got %v", records)
	}
	if resume.String() != "cc" {
		t.Fatalf("expected resume key cc, got %q", resume.String())
	}
}

func TestSearchRangeMalformed(t *testing.T) {
	tree := openTestTree(t)
	tree.Insert(NewKey("a"), 1)

	if _, _, _, status := tree.SearchRange(NewKey("z"), NewKey("a"), 10); status != -1 {
		t.Fatalf("expected -1 for left > right, got %d", status)
	}
	if _, _, _, status := tree.SearchRange(NewKey("a"), NewKey("z"), 0); status != -1 {
		t.Fatalf("expected -1 for max <= 0, got %d", status)
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func valuesEqual(records []Record, want []int32) bool {
	if len(records) != len(want) {
		return false
	}
	for i := range records {
		if records[i].Value != want[i] {
			return false
		}
	}
	return true
}
