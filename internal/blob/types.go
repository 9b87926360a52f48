// Package blob is the archive store facade. Call sites depend on the Store
// interface here; the driver packages under internal/infra/blob stay behind
// this package (enforced by the architecture test).
package blob

import (
	"clonecore/internal/blob/core"
)

type (
	// Driver identifies an archive storage backend.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the storage backend interface.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation a driver does not provide.
var ErrUnsupported = core.ErrUnsupported
