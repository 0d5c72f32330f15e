package fxtree

// Status codes returned by the public API. These preserve the source
// interface's integer semantics (spec.md §6) rather than idiomatic Go
// errors, because the round-trip laws this package is tested against are
// phrased in terms of these exact codes.
const (
	// StatusOK is returned by Insert, Update and Remove on success.
	StatusOK = 0
	// StatusNotFound is returned by Search, Update and Remove when the key
	// is absent.
	StatusNotFound = -1
	// StatusDuplicateKey is returned by Insert when the key already exists.
	StatusDuplicateKey = 1
	// StatusWrongKey is returned by Update when find() lands on an interior
	// position whose key doesn't match the query — an update miss that
	// isn't a clean not-found.
	StatusWrongKey = 1
)

// Record is one (key, value) pair, used as the output type of SearchRange.
type Record struct {
	Key   Key
	Value int32
}

// Tree is a persistent B+Tree index backed by a single file. It assumes
// single-writer, single-reader use: every public method runs to completion
// without yielding, and there is no locking discipline beyond the file
// handle's internal open/close nesting counter.
type Tree struct {
	bs   *blockStore
	meta Meta
}

// Open opens path as a B+Tree index file, or initializes a fresh empty tree
// if the file doesn't exist, is empty, or forceEmpty is true. It uses the
// production branching factor (DefaultOrder); use OpenOrder to pick a
// smaller order, e.g. for tests that want to exercise splits cheaply.
func Open(path string, forceEmpty bool) (*Tree, error) {
	return OpenOrder(path, forceEmpty, DefaultOrder)
}

// OpenOrder is like Open but lets the caller choose the branching factor
// used when a fresh tree is initialized. The order of an existing file is
// whatever its header already records; order is ignored in that case.
func OpenOrder(path string, forceEmpty bool, order uint32) (*Tree, error) {
	t := &Tree{bs: newBlockStore(path)}

	if !forceEmpty {
		m, err := t.tryReadMeta()
		if err != nil {
			forceEmpty = true
		} else {
			t.meta = m
		}
	}

	if forceEmpty {
		if err := t.initFromEmpty(order); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Close releases the underlying file handle. Safe to call even though most
// operations already close the handle between calls; present for symmetry
// and for callers that want a deterministic release point.
func (t *Tree) Close() error {
	return t.bs.close()
}

// Meta returns a copy of the tree's file header.
func (t *Tree) Meta() Meta {
	return t.meta
}

func (t *Tree) tryReadMeta() (Meta, error) {
	buf, err := t.bs.read(metaOffset, metaSize)
	if err != nil {
		return Meta{}, err
	}
	return decodeMeta(buf), nil
}

func (t *Tree) writeMeta() error {
	return t.bs.write(metaOffset, t.meta.encode())
}

func (t *Tree) readInternal(offset int64) (*internalNode, error) {
	buf, err := t.bs.read(offset, internalNodeSize(t.meta.Order))
	if err != nil {
		return nil, err
	}
	return decodeInternalNode(buf, t.meta.Order), nil
}

func (t *Tree) writeInternal(offset int64, n *internalNode) error {
	return t.bs.write(offset, encodeInternalNode(n, t.meta.Order))
}

func (t *Tree) readLeaf(offset int64) (*leafNode, error) {
	buf, err := t.bs.read(offset, leafNodeSize(t.meta.Order))
	if err != nil {
		return nil, err
	}
	return decodeLeafNode(buf, t.meta.Order), nil
}

func (t *Tree) writeLeaf(offset int64, n *leafNode) error {
	return t.bs.write(offset, encodeLeafNode(n, t.meta.Order))
}

// allocInternal reserves a contiguous internalNode-sized region at the
// current slot, advances the slot cursor, bumps the internal-node counter,
// and returns the starting offset. A newly allocated internal node starts
// with N=1: a single, key-less rightmost-child placeholder, matching the
// source's alloc(ToyInternalNode*).
func (t *Tree) allocInternal() (int64, *internalNode) {
	offset := t.meta.Slot
	t.meta.Slot += internalNodeSize(t.meta.Order)
	t.meta.InternalNodeNum++
	n := newInternalNode(t.meta.Order)
	n.N = 1
	return offset, n
}

// allocLeaf reserves a contiguous leafNode-sized region at the current
// slot, advances the slot cursor, bumps the leaf-node counter, and returns
// the starting offset. A newly allocated leaf starts with N=0.
func (t *Tree) allocLeaf() (int64, *leafNode) {
	offset := t.meta.Slot
	t.meta.Slot += leafNodeSize(t.meta.Order)
	t.meta.LeafNodeNum++
	return offset, newLeafNode(t.meta.Order)
}

// freeInternal decrements the internal-node counter. It does not reclaim
// file space — deleted nodes are leaked within the file, per spec.md's
// explicit non-goal of space reclamation.
func (t *Tree) freeInternal() {
	t.meta.InternalNodeNum--
}

// freeLeaf decrements the leaf-node counter without reclaiming file space.
func (t *Tree) freeLeaf() {
	t.meta.LeafNodeNum--
}

// minN is the minimum live-entry count a non-root node must hold: ⌈order/2⌉,
// except when there is exactly one leaf in the whole tree (the
// root-is-the-only-leaf case), where the floor is zero.
func (t *Tree) minN(singleLeaf bool) uint32 {
	if singleLeaf {
		return 0
	}
	return (t.meta.Order + 1) / 2
}

// initFromEmpty bootstraps a brand-new tree file: a zeroed meta record at
// height 1 with a single leaf standing as the root. No internal node exists
// until the first leaf split grows one above it.
func (t *Tree) initFromEmpty(order uint32) error {
	t.meta = Meta{
		Order:     order,
		KeySize:   KeySize,
		ValueSize: ValueSize,
		Height:    1,
		Slot:      metaSize,
	}

	leafOffset, leaf := t.allocLeaf()
	t.meta.RootOffset = leafOffset
	t.meta.LeafOffset = leafOffset

	if err := t.writeMeta(); err != nil {
		return err
	}
	if err := t.writeLeaf(leafOffset, leaf); err != nil {
		return err
	}
	return nil
}

// Search performs a point lookup. It returns (0, value) on an exact match,
// (-1, 0) when the key is absent past the end of its leaf, or a positive
// Compare() result when find() probed a record that exists but doesn't
// match — which conventionally also means not-found (spec.md §9).
func (t *Tree) Search(key Key) (int, int32) {
	leafOffset, err := t.searchLeafByKey(key)
	if err != nil {
		return StatusNotFound, 0
	}
	leaf, err := t.readLeaf(leafOffset)
	if err != nil {
		return StatusNotFound, 0
	}

	idx := findInLeaf(leaf, key)
	if idx == int(leaf.N) {
		return StatusNotFound, 0
	}
	rec := leaf.Children[idx]
	return Compare(rec.Key, key), rec.Value
}

// MustSearch is a convenience wrapper returning idiomatic (value, error)
// results for callers that don't want to interpret status codes directly.
func (t *Tree) MustSearch(key Key) (int32, error) {
	status, value := t.Search(key)
	if status != StatusOK {
		return 0, ErrNotFound
	}
	return value, nil
}
