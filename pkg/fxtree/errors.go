package fxtree

import "github.com/cockroachdb/errors"

// Sentinel errors for the three error classes spec.md §7 describes:
// expected outcomes (not used on the primary status-code API, but available
// to callers who prefer the idiomatic error-returning style), invariant
// violations (implementation bugs or file corruption), and I/O failures.
var (
	// ErrNotFound is returned by the Must* convenience wrappers when a key
	// is absent. The primary API (Search/Update/Remove) reports this via a
	// status code instead, matching the source's interface.
	ErrNotFound = errors.New("fxtree: key not found")

	// ErrDuplicateKey is returned by MustInsert when the key already exists.
	ErrDuplicateKey = errors.New("fxtree: duplicate key")

	// ErrWrongKey is returned by MustUpdate when find() lands on an interior
	// position whose key does not match — an update miss that isn't a
	// clean not-found.
	ErrWrongKey = errors.New("fxtree: key mismatch at probe location")
)

// InvariantViolation is raised (as a panic, by mustIndexOfChild) when an
// insert or rebalancing step finds that a node's parent does not list that
// node among its children. This indicates a bug in this package or a
// corrupted tree file, never an expected runtime outcome.
type InvariantViolation struct {
	msg string
}

func (e *InvariantViolation) Error() string { return "fxtree: invariant violation: " + e.msg }

func newInvariantViolation(msg string) error {
	return &InvariantViolation{msg: msg}
}

// IoError wraps a short read, a short write, or a failure to open the
// backing file. Its cause is wrapped with cockroachdb/errors, which records
// a stack trace on that cause; IoError itself defines no formatter, so "%+v"
// on it prints only Error(), and the trace is reached through Unwrap.
type IoError struct {
	cause error
}

func (e *IoError) Error() string { return "fxtree: io error: " + e.cause.Error() }
func (e *IoError) Unwrap() error { return e.cause }

func newIoError(op string, err error) error {
	return &IoError{cause: errors.Wrapf(err, "fxtree: %s", op)}
}
