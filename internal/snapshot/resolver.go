package snapshot

// resolution is the outcome of resolving an id against the live scene.
type resolution uint8

const (
	resolvedExisting resolution = iota
	resolvedCreated
	resolvedReplaced
)

// resolver implements find-or-create by id. An object found by id that
// fails matches is destroyed and created again with the same id.
type resolver[T any] struct {
	lookup  func(id uint32) (T, bool)
	matches func(T) bool
	destroy func(T)
	create  func(id uint32) (T, error)
}

func (r resolver[T]) resolve(id uint32) (T, resolution, error) {
	obj, found := r.lookup(id)
	if found {
		if r.matches == nil || r.matches(obj) {
			return obj, resolvedExisting, nil
		}
		r.destroy(obj)
	}
	created, err := r.create(id)
	if err != nil {
		var zero T
		return zero, resolvedCreated, err
	}
	if found {
		return created, resolvedReplaced, nil
	}
	return created, resolvedCreated, nil
}

// objectKind distinguishes nodes from components during a read.
type objectKind uint8

const (
	entityKind objectKind = iota
	componentKind
)

// lateApply reports whether ApplyAttributes runs after the attributes of
// an object of this kind are read. A node's ApplyAttributes cascades into
// components and children that are reconciled separately, so nodes skip it.
func (k objectKind) lateApply() bool {
	return k == componentKind
}
