package repository

import (
	"fmt"

	"github.com/paklift/service-ride/internal/platform/apperr"
)

// recoverStorage turns a panic raised below the repository boundary into a
// storage error on *err. It must be deferred directly.
func recoverStorage(op string, err *error) {
	if p := recover(); p != nil {
		*err = apperr.NewStorageError(op, fmt.Errorf("panic: %v", p))
	}
}
