package scene

import "errors"

var (
	// ErrUnknownComponentType is returned by CreateComponent for a type hash
	// with no registered class.
	ErrUnknownComponentType = errors.New("unknown component type")

	// ErrDuplicateID is returned when an explicit id is already in use.
	ErrDuplicateID = errors.New("id already in use")

	// ErrDuplicateClass is returned when registering a class twice.
	ErrDuplicateClass = errors.New("class already registered")

	// ErrInvalidParent is returned when a parent id does not resolve, or
	// when reparenting would create a cycle.
	ErrInvalidParent = errors.New("invalid parent")

	// ErrRemoved is returned for operations on a removed node.
	ErrRemoved = errors.New("node removed")

	// ErrAttributeType is returned when a value does not match the
	// attribute's declared kind.
	ErrAttributeType = errors.New("attribute type mismatch")

	// ErrIDSpaceExhausted is returned when no free id remains in a range.
	ErrIDSpaceExhausted = errors.New("id space exhausted")
)
