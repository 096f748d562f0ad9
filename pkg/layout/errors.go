package layout

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by every operation on a closed Module.
var ErrClosed = errors.New("layout: module is closed")

// NotInitializedError is returned when the facade is used before an engine
// module was bound to it.
type NotInitializedError struct {
	Op string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("layout: %s called before the engine module was initialized", e.Op)
}
