package blob

import (
	"clonecore/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed archive store rooted at the
// provided path. Returns Store so call sites depend on the interface.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
