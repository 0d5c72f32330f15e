// Package fxtree implements a persistent, disk-backed B+Tree index.
//
// The tree maps fixed-width 16-byte keys to 32-bit signed integer values and
// stores its entire state — a file header plus every internal and leaf node
// — inside a single regular file, accessed through positional reads and
// writes. It supports point lookup, bounded range scan, insert, update and
// delete, with split/merge/borrow rebalancing and leaf-chain maintenance.
//
// The tree assumes single-writer, single-reader use: there is no locking
// discipline and no crash-consistency protocol. Callers needing either must
// add their own, the same way pkg/store guards its KVStore with a mutex.
package fxtree
