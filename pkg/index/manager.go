package index

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/fxtree/pkg/fxtree"
)

// fillByte pads a composite key out to fxtree.KeySize once the serialized
// field value and primary key are written. It must never be zero: fxtree's
// Key treats its content as a NUL-terminated C string, so a zero filler
// would truncate the key's effective length and corrupt ordering. Padding
// with fillByte instead guarantees every composite key has an effective
// length of exactly KeySize, so the tree's length-first comparison always
// ties and falls through to a plain byte-by-byte compare of field value
// then primary key, which is the ordering this index actually wants.
const fillByte = 0x01

const (
	tagInt    = 'I'
	tagFloat  = 'F'
	tagString = 'S'
)

// SecondaryIndex manages a disk-backed fxtree.Tree index over one field of
// the records a KVStore holds. The composite index key packs a serialized
// field value followed by the owning primary key into fxtree's fixed
// 16-byte key; the leaf value records how many trailing bytes belong to the
// primary key so it can be sliced back out of a match.
type SecondaryIndex struct {
	fieldName string
	tree      *fxtree.Tree
	path      string
	order     int
	mutex     sync.RWMutex
}

// NewSecondaryIndex creates a new secondary index for a field, backed by a
// scratch file under the OS temp directory. Save persists it under a stable
// name inside a caller-chosen directory.
func NewSecondaryIndex(fieldName string, order int) *SecondaryIndex {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("fxtree-index-%s-%s.dat", fieldName, ksuid.New().String()))
	tree, err := fxtree.OpenOrder(path, true, uint32(order))
	if err != nil {
		// OpenOrder only fails writing to a scratch path we just built. The
		// index is then returned with a nil tree, and later method calls on
		// it panic on that nil tree instead of returning an error.
		tree = nil
	}
	return &SecondaryIndex{fieldName: fieldName, tree: tree, path: path, order: order}
}

// Insert adds a record to the secondary index. The index key is
// serialize(fieldValue) followed by primaryKey; it returns an error if that
// composite doesn't fit in fxtree's fixed key width.
func (idx *SecondaryIndex) Insert(fieldValue interface{}, primaryKey []byte) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	key, err := idx.compositeKey(fieldValue, primaryKey)
	if err != nil {
		return err
	}

	status := idx.tree.Insert(key, int32(len(primaryKey)))
	if status == fxtree.StatusDuplicateKey {
		return fmt.Errorf("index %q: duplicate entry for field value %v / primary key %x", idx.fieldName, fieldValue, primaryKey)
	}
	return nil
}

// Delete removes a record from the secondary index. It reports whether a
// matching entry was actually present.
func (idx *SecondaryIndex) Delete(fieldValue interface{}, primaryKey []byte) bool {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	key, err := idx.compositeKey(fieldValue, primaryKey)
	if err != nil {
		return false
	}
	return idx.tree.Remove(key) == fxtree.StatusOK
}

// Search finds every primary key recorded under an exact field value match.
func (idx *SecondaryIndex) Search(fieldValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	prefix := idx.serializeValue(fieldValue)
	lo, hi, err := fieldPrefixBounds(prefix)
	if err != nil {
		return nil, err
	}
	return idx.collectPrimaryKeys(lo, hi, len(prefix))
}

// SearchRange finds primary keys whose field value falls in [startValue,
// endValue]; either bound may be nil for an open end. Because fxtree orders
// keys by length before content, this is reliable for field values that all
// serialize to a common width (every numeric type does); variable-length
// string ranges only behave correctly when the values being compared share
// length, a direct consequence of the index's on-disk ordering rule.
func (idx *SecondaryIndex) SearchRange(startValue, endValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	var lo, hi fxtree.Key
	prefixLen := 0
	switch {
	case startValue == nil && endValue == nil:
		hi = fxtree.NewKeyFromBytes(bytes.Repeat([]byte{0xFF}, fxtree.KeySize))
	case startValue == nil:
		prefix := idx.serializeValue(endValue)
		prefixLen = len(prefix)
		hi = fxtree.NewKeyFromBytes(padHigh(prefix))
	case endValue == nil:
		prefix := idx.serializeValue(startValue)
		prefixLen = len(prefix)
		lo = fxtree.NewKeyFromBytes(padLow(prefix))
		hi = fxtree.NewKeyFromBytes(bytes.Repeat([]byte{0xFF}, fxtree.KeySize))
	default:
		loPrefix := idx.serializeValue(startValue)
		hiPrefix := idx.serializeValue(endValue)
		prefixLen = len(loPrefix)
		lo = fxtree.NewKeyFromBytes(padLow(loPrefix))
		hi = fxtree.NewKeyFromBytes(padHigh(hiPrefix))
	}

	return idx.collectPrimaryKeys(lo, hi, prefixLen)
}

// collectPrimaryKeys drains every record in [lo, hi], following has_more
// until the range is exhausted, and slices each match's trailing
// primaryKeyLen bytes back out of its composite key.
func (idx *SecondaryIndex) collectPrimaryKeys(lo, hi fxtree.Key, prefixLen int) ([][]byte, error) {
	const batch = 256
	var out [][]byte
	cursor := lo
	for {
		records, hasMore, resume, status := idx.tree.SearchRange(cursor, hi, batch)
		if status < 0 {
			return nil, fmt.Errorf("index %q: malformed range scan", idx.fieldName)
		}
		for _, r := range records {
			n := int(r.Value)
			if prefixLen+n > fxtree.KeySize || n < 0 {
				continue
			}
			out = append(out, append([]byte(nil), r.Key[prefixLen:prefixLen+n]...))
		}
		if !hasMore {
			return out, nil
		}
		cursor = resume
	}
}

// compositeKey builds the fixed-width key for (fieldValue, primaryKey): the
// serialized field value followed by the primary key, padded to
// fxtree.KeySize with fillByte. It errors if the pair doesn't fit, or if
// either half contains a NUL byte that would truncate the key's effective
// length.
func (idx *SecondaryIndex) compositeKey(fieldValue interface{}, primaryKey []byte) (fxtree.Key, error) {
	prefix := idx.serializeValue(fieldValue)
	if bytes.IndexByte(prefix, 0) >= 0 {
		return fxtree.Key{}, fmt.Errorf("index %q: serialized field value %v must not contain a NUL byte", idx.fieldName, fieldValue)
	}
	if bytes.IndexByte(primaryKey, 0) >= 0 {
		return fxtree.Key{}, fmt.Errorf("index %q: primary key must not contain a NUL byte", idx.fieldName)
	}
	if len(prefix)+len(primaryKey) > fxtree.KeySize {
		return fxtree.Key{}, fmt.Errorf("index %q: field value plus primary key (%d+%d bytes) exceeds the %d-byte key width",
			idx.fieldName, len(prefix), len(primaryKey), fxtree.KeySize)
	}
	buf := make([]byte, fxtree.KeySize)
	copy(buf, prefix)
	copy(buf[len(prefix):], primaryKey)
	for i := len(prefix) + len(primaryKey); i < fxtree.KeySize; i++ {
		buf[i] = fillByte
	}
	return fxtree.NewKeyFromBytes(buf), nil
}

// fieldPrefixBounds returns the [lo, hi] composite-key range covering every
// primary key suffix for one field-value prefix.
func fieldPrefixBounds(prefix []byte) (lo, hi fxtree.Key, err error) {
	if len(prefix) > fxtree.KeySize {
		return fxtree.Key{}, fxtree.Key{}, fmt.Errorf("serialized field value (%d bytes) exceeds the %d-byte key width", len(prefix), fxtree.KeySize)
	}
	return fxtree.NewKeyFromBytes(padLow(prefix)), fxtree.NewKeyFromBytes(padHigh(prefix)), nil
}

// padLow fills the suffix after prefix with the lowest byte a primary key
// can legally contain, giving the smallest composite key with that prefix.
func padLow(prefix []byte) []byte {
	buf := make([]byte, fxtree.KeySize)
	copy(buf, prefix)
	for i := len(prefix); i < fxtree.KeySize; i++ {
		buf[i] = fillByte
	}
	return buf
}

// padHigh fills the suffix after prefix with 0xFF, giving the largest
// composite key with that prefix.
func padHigh(prefix []byte) []byte {
	buf := make([]byte, fxtree.KeySize)
	copy(buf, prefix)
	for i := len(prefix); i < fxtree.KeySize; i++ {
		buf[i] = 0xFF
	}
	return buf
}

// serializeValue serializes a field value into a type-tagged, NUL-free
// byte prefix. Integers and floats serialize to a fixed 10-byte width
// (tag byte, sign byte, 8-digit zero-padded decimal) so range queries over
// them compare correctly byte-by-byte; floats are rounded to two decimal
// places to fit the same width. Strings serialize to a tag byte followed by
// their raw bytes, which only orders correctly against other strings of
// identical length, a consequence of the underlying tree's length-first key
// ordering (see SearchRange's doc comment).
func (idx *SecondaryIndex) serializeValue(value interface{}) []byte {
	switch v := value.(type) {
	case int:
		return encodeDecimal(tagInt, int64(v))
	case int64:
		return encodeDecimal(tagInt, v)
	case float64:
		return encodeDecimal(tagFloat, int64(math.Round(v*100)))
	case string:
		return append([]byte{tagString}, []byte(v)...)
	default:
		return append([]byte{tagString}, []byte(fmt.Sprintf("%v", v))...)
	}
}

// encodeDecimal renders v as tag + sign + an 8-digit zero-padded decimal,
// the widest magnitude (99999999) this index supports for numeric fields.
func encodeDecimal(tag byte, v int64) []byte {
	sign := byte('+')
	if v < 0 {
		sign = '-'
		v = -v
	}
	return []byte(fmt.Sprintf("%c%c%08d", tag, sign, v))
}

// IndexStats summarizes a secondary index's backing tree header for
// diagnostics, mirroring fxtree.Meta's node counters and height.
type IndexStats struct {
	Field           string `json:"field"`
	Order           uint32 `json:"order"`
	Height          uint32 `json:"height"`
	InternalNodeNum uint32 `json:"internal_nodes"`
	LeafNodeNum     uint32 `json:"leaf_nodes"`
}

// Stat reports the backing tree's header fields.
func (idx *SecondaryIndex) Stat() IndexStats {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	m := idx.tree.Meta()
	return IndexStats{
		Field:           idx.fieldName,
		Order:           m.Order,
		Height:          m.Height,
		InternalNodeNum: m.InternalNodeNum,
		LeafNodeNum:     m.LeafNodeNum,
	}
}

// Save persists the index's current file to dir/index_<field>.dat.
func (idx *SecondaryIndex) Save(dir string) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	_ = idx.tree.Close()
	data, err := os.ReadFile(idx.path)
	if err != nil {
		return fmt.Errorf("failed to read index file for field %s: %w", idx.fieldName, err)
	}

	target := filepath.Join(dir, fmt.Sprintf("index_%s.dat", idx.fieldName))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to persist index for field %s: %w", idx.fieldName, err)
	}
	return nil
}

// Load restores the index from dir/index_<field>.dat, if present.
func (idx *SecondaryIndex) Load(dir string) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	source := filepath.Join(dir, fmt.Sprintf("index_%s.dat", idx.fieldName))
	if _, err := os.Stat(source); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to load index for field %s: %w", idx.fieldName, err)
	}
	if err := os.WriteFile(idx.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to stage index for field %s: %w", idx.fieldName, err)
	}

	tree, err := fxtree.OpenOrder(idx.path, false, uint32(idx.order))
	if err != nil {
		return fmt.Errorf("failed to open index for field %s: %w", idx.fieldName, err)
	}
	idx.tree = tree
	return nil
}

// IndexManager manages multiple secondary indexes for a partition.
type IndexManager struct {
	indexes map[string]*SecondaryIndex
	mutex   sync.RWMutex
	order   int
}

// NewIndexManager creates a new index manager.
func NewIndexManager(order int) *IndexManager {
	return &IndexManager{
		indexes: make(map[string]*SecondaryIndex),
		order:   order,
	}
}

// GetOrCreateIndex gets an existing index or creates a new one for a field.
func (im *IndexManager) GetOrCreateIndex(fieldName string) *SecondaryIndex {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	if idx, exists := im.indexes[fieldName]; exists {
		return idx
	}

	idx := NewSecondaryIndex(fieldName, im.order)
	im.indexes[fieldName] = idx
	return idx
}

// SaveAll saves all indexes to disk.
func (im *IndexManager) SaveAll(dir string) error {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	for _, idx := range im.indexes {
		if err := idx.Save(dir); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll loads every index file found in dir.
func (im *IndexManager) LoadAll(dir string) error {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	pattern := filepath.Join(dir, "index_*.dat")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, file := range files {
		filename := filepath.Base(file)
		if len(filename) < 10 {
			continue
		}
		fieldName := filename[len("index_") : len(filename)-len(".dat")]

		idx := NewSecondaryIndex(fieldName, im.order)
		if err := idx.Load(dir); err != nil {
			return err
		}
		im.indexes[fieldName] = idx
	}

	return nil
}
