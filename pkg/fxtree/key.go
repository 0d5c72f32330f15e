package fxtree

import "bytes"

// KeySize is the fixed width, in bytes, of every key stored in the tree.
const KeySize = 16

// Key is a 16-byte null-padded buffer. Keys shorter than KeySize are padded
// with zero bytes; comparison treats each key as a C string and stops at the
// first NUL, exactly like the original toyindexfile source.
type Key [KeySize]byte

// NewKey builds a Key from a Go string, truncating at KeySize-1 bytes and
// null-padding the remainder. Truncation silently drops trailing bytes, same
// as strcpy into a fixed char[16] would.
func NewKey(s string) Key {
	if len(s) > KeySize-1 {
		s = s[:KeySize-1]
	}
	return NewKeyFromBytes([]byte(s))
}

// NewKeyFromBytes builds a Key from an arbitrary byte slice, truncating at
// KeySize bytes and zero-padding the remainder. Unlike NewKey it allows
// embedded NUL bytes in the input; callers relying on String()/effectiveLen
// to recover the original content must keep their own length alongside it,
// exactly as pkg/index does for composite keys.
func NewKeyFromBytes(b []byte) Key {
	var k Key
	n := len(b)
	if n > KeySize {
		n = KeySize
	}
	copy(k[:n], b[:n])
	return k
}

// String returns the key's content up to the first NUL byte.
func (k Key) String() string {
	n := bytes.IndexByte(k[:], 0)
	if n < 0 {
		n = KeySize
	}
	return string(k[:n])
}

// IsEmpty reports whether k is the all-zero sentinel key (effective length
// zero). The tree's search and mutation paths do not call it.
func (k Key) IsEmpty() bool {
	return k.effectiveLen() == 0
}

// effectiveLen returns the C-string length of the key: the number of bytes
// before the first NUL.
func (k Key) effectiveLen() int {
	n := bytes.IndexByte(k[:], 0)
	if n < 0 {
		return KeySize
	}
	return n
}

// Compare implements the tree's total ordering: shorter effective-length
// keys sort before longer ones regardless of their bytes, and only keys of
// equal effective length are compared lexicographically. This ordering is
// unusual — "bb" sorts before "aaa" — and must be preserved exactly, because
// an on-disk tree file is only meaningful under the ordering it was written
// with.
func Compare(a, b Key) int {
	la, lb := a.effectiveLen(), b.effectiveLen()
	if la != lb {
		return la - lb
	}
	return bytes.Compare(a[:la], b[:lb])
}

// Less reports whether a sorts strictly before b under Compare.
func Less(a, b Key) bool { return Compare(a, b) < 0 }
