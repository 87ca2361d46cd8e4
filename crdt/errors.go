package crdt

import "errors"

// Sentinel errors for the taxonomy in spec.md §7. Callers should use
// errors.Is against these, since concrete errors are wrapped with
// additional context via fmt.Errorf("...: %w", ...), the same way the
// teacher wraps ValidateChild failures in crdt/ctree.go.
var (
	// ErrInvalidArgument covers out-of-range indices, a floor lookup that
	// found no owning element, a malformed path, a non-numeric Increase,
	// or an unsupported primitive value.
	ErrInvalidArgument = errors.New("crdt: invalid argument")

	// ErrUnexpected signals an internal invariant violation: a bug, not a
	// caller mistake. E.g. a floor lookup succeeded but its key did not
	// match the expected owner.
	ErrUnexpected = errors.New("crdt: unexpected internal state")

	// ErrUnimplemented is returned by operations the core deliberately
	// does not support yet (Tree.Split, Tree.MoveNode).
	ErrUnimplemented = errors.New("crdt: unimplemented")

	// ErrTypeError is returned when Counter.Increase is called with a
	// numeric type incompatible with the counter's own value type.
	ErrTypeError = errors.New("crdt: type error")
)
