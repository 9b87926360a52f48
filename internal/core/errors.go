package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when reference validation fails within transactional helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrNoBlobStore is returned by staging operations when no archive store was configured.
var ErrNoBlobStore = errors.New("core: no blob store configured")
