package fxtree

import "encoding/binary"

// ValueSize is the fixed width, in bytes, of every value stored in a leaf
// (a 32-bit signed integer).
const ValueSize = 4

// DefaultOrder is the branching factor used by production trees. Tests use
// a much smaller order (commonly 4) to exercise splits/merges cheaply.
const DefaultOrder = 20

// metaOffset is where the file header always lives.
const metaOffset = 0

// metaSize is the encoded size, in bytes, of Meta: six uint32 fields plus
// three int64 fields. Fixed regardless of order, since it only records
// counters and offsets, not node contents.
const metaSize = 6*4 + 3*8

// Meta is the fixed file header record written at offset 0: branching
// factor, key/value widths, tree height, node counts, the next allocation
// offset, the root offset, and leaf_offset, which records the first leaf's
// offset when an empty tree is initialized and is never updated afterwards;
// only the package's tests read it back.
type Meta struct {
	Order           uint32
	KeySize         uint32
	ValueSize       uint32
	InternalNodeNum uint32
	LeafNodeNum     uint32
	Height          uint32
	Slot            int64
	RootOffset      int64
	LeafOffset      int64 // first leaf at initialization; never updated
}

func (m Meta) encode() []byte {
	buf := make([]byte, metaSize)
	binary.LittleEndian.PutUint32(buf[0:4], m.Order)
	binary.LittleEndian.PutUint32(buf[4:8], m.KeySize)
	binary.LittleEndian.PutUint32(buf[8:12], m.ValueSize)
	binary.LittleEndian.PutUint32(buf[12:16], m.InternalNodeNum)
	binary.LittleEndian.PutUint32(buf[16:20], m.LeafNodeNum)
	binary.LittleEndian.PutUint32(buf[20:24], m.Height)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(m.Slot))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(m.RootOffset))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(m.LeafOffset))
	return buf
}

func decodeMeta(buf []byte) Meta {
	var m Meta
	m.Order = binary.LittleEndian.Uint32(buf[0:4])
	m.KeySize = binary.LittleEndian.Uint32(buf[4:8])
	m.ValueSize = binary.LittleEndian.Uint32(buf[8:12])
	m.InternalNodeNum = binary.LittleEndian.Uint32(buf[12:16])
	m.LeafNodeNum = binary.LittleEndian.Uint32(buf[16:20])
	m.Height = binary.LittleEndian.Uint32(buf[20:24])
	m.Slot = int64(binary.LittleEndian.Uint64(buf[24:32]))
	m.RootOffset = int64(binary.LittleEndian.Uint64(buf[32:40]))
	m.LeafOffset = int64(binary.LittleEndian.Uint64(buf[40:48]))
	return m
}
