package fxtree

import "encoding/binary"

// nodeHeaderSize is the size, in bytes, of the fields common to both node
// kinds: parent offset, same-level sibling offsets, and the entry count.
const nodeHeaderSize = 8 + 8 + 8 + 4 // parent, prev, next, n

// entryIndexSize is the encoded size of one internal-node entry: a key plus
// a child offset.
const entryIndexSize = KeySize + 8

// entryRecordSize is the encoded size of one leaf-node record: a key plus
// an int32 value.
const entryRecordSize = KeySize + ValueSize

// indexEntry is one (separator key, child offset) pair inside an internal
// node. For the last live entry (i == n-1), Key is unused and Child points
// at the rightmost subtree.
type indexEntry struct {
	Key   Key
	Child int64
}

// record is one (key, value) pair inside a leaf node, kept in ascending
// key order.
type record struct {
	Key   Key
	Value int32
}

// internalNode holds up to order children, separated by order-1 keys.
// parent/prev/next are file offsets, never in-memory pointers — the file is
// the only arena nodes live in.
type internalNode struct {
	Parent   int64
	Prev     int64
	Next     int64
	N        uint32
	Children []indexEntry // len == order, only [0:N) are live
}

// leafNode holds up to order (key, value) records in sorted order, plus the
// prev/next offsets that thread every leaf at the same depth into the
// doubly linked leaf chain used for range scans.
type leafNode struct {
	Parent   int64
	Prev     int64
	Next     int64
	N        uint32
	Children []record // len == order, only [0:N) are live
}

func internalNodeSize(order uint32) int64 {
	return int64(nodeHeaderSize) + int64(order)*int64(entryIndexSize)
}

func leafNodeSize(order uint32) int64 {
	return int64(nodeHeaderSize) + int64(order)*int64(entryRecordSize)
}

func newInternalNode(order uint32) *internalNode {
	return &internalNode{Children: make([]indexEntry, order)}
}

func newLeafNode(order uint32) *leafNode {
	return &leafNode{Children: make([]record, order)}
}

func encodeInternalNode(n *internalNode, order uint32) []byte {
	buf := make([]byte, internalNodeSize(order))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n.Parent))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(n.Prev))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(n.Next))
	binary.LittleEndian.PutUint32(buf[24:28], n.N)
	off := nodeHeaderSize
	for i := 0; i < int(order); i++ {
		e := n.Children[i]
		copy(buf[off:off+KeySize], e.Key[:])
		binary.LittleEndian.PutUint64(buf[off+KeySize:off+entryIndexSize], uint64(e.Child))
		off += entryIndexSize
	}
	return buf
}

func decodeInternalNode(buf []byte, order uint32) *internalNode {
	n := newInternalNode(order)
	n.Parent = int64(binary.LittleEndian.Uint64(buf[0:8]))
	n.Prev = int64(binary.LittleEndian.Uint64(buf[8:16]))
	n.Next = int64(binary.LittleEndian.Uint64(buf[16:24]))
	n.N = binary.LittleEndian.Uint32(buf[24:28])
	off := nodeHeaderSize
	for i := 0; i < int(order); i++ {
		var e indexEntry
		copy(e.Key[:], buf[off:off+KeySize])
		e.Child = int64(binary.LittleEndian.Uint64(buf[off+KeySize : off+entryIndexSize]))
		n.Children[i] = e
		off += entryIndexSize
	}
	return n
}

func encodeLeafNode(n *leafNode, order uint32) []byte {
	buf := make([]byte, leafNodeSize(order))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n.Parent))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(n.Prev))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(n.Next))
	binary.LittleEndian.PutUint32(buf[24:28], n.N)
	off := nodeHeaderSize
	for i := 0; i < int(order); i++ {
		r := n.Children[i]
		copy(buf[off:off+KeySize], r.Key[:])
		binary.LittleEndian.PutUint32(buf[off+KeySize:off+entryRecordSize], uint32(r.Value))
		off += entryRecordSize
	}
	return buf
}

func decodeLeafNode(buf []byte, order uint32) *leafNode {
	n := newLeafNode(order)
	n.Parent = int64(binary.LittleEndian.Uint64(buf[0:8]))
	n.Prev = int64(binary.LittleEndian.Uint64(buf[8:16]))
	n.Next = int64(binary.LittleEndian.Uint64(buf[16:24]))
	n.N = binary.LittleEndian.Uint32(buf[24:28])
	off := nodeHeaderSize
	for i := 0; i < int(order); i++ {
		var r record
		copy(r.Key[:], buf[off:off+KeySize])
		r.Value = int32(binary.LittleEndian.Uint32(buf[off+KeySize : off+entryRecordSize]))
		n.Children[i] = r
		off += entryRecordSize
	}
	return n
}

// live stands in for the source's begin(node)/end(node) helpers: it returns
// the live slice of an internal node's children or a leaf's records.
func (n *internalNode) live() []indexEntry { return n.Children[:n.N] }
func (n *leafNode) live() []record         { return n.Children[:n.N] }
