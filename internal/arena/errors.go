package arena

import "fmt"

// UnknownHandleError occurs when a handle does not refer to a live node of
// the arena: it was removed, it belongs to another arena, or it is zero.
type UnknownHandleError struct {
	Handle Handle
}

func (e *UnknownHandleError) Error() string {
	return fmt.Sprintf("unknown node handle %s", e.Handle)
}

// UnknownChildHandleError occurs when a handle passed as a child does not
// resolve.
type UnknownChildHandleError struct {
	Child Handle
	// Index is the position in the children list, or -1 for a single child.
	Index int
}

func (e *UnknownChildHandleError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("unknown child handle %s", e.Child)
	}
	return fmt.Sprintf("unknown child handle %s at index %d", e.Child, e.Index)
}

func (e *UnknownChildHandleError) Unwrap() error {
	return &UnknownHandleError{Handle: e.Child}
}

// DuplicateChildError occurs when a children list names the same handle
// more than once.
type DuplicateChildError struct {
	Child Handle
	// Index is the position of the repeat, First the earlier occurrence.
	Index, First int
}

func (e *DuplicateChildError) Error() string {
	return fmt.Sprintf("child handle %s at index %d repeats index %d", e.Child, e.Index, e.First)
}
