package blob

import (
	"context"
	"fmt"
	"os"
)

// Open selects an archive store implementation from environment variables.
//
//	CLONECORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	CLONECORE_BLOB_FS_ROOT: directory root when driver=fs (default ./archives)
//	(S3 variables documented in internal/infra/blob/s3)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("CLONECORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("CLONECORE_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
