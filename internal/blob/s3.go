package blob

import (
	"context"

	infras3 "clonecore/internal/infra/blob/s3"
)

// S3Config re-exports the S3 driver configuration.
type S3Config = infras3.Config

// NewS3 constructs an S3-backed archive store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infras3.New(ctx, cfg)
}

// OpenFromEnv constructs an S3 store using environment variables.
func OpenFromEnv(ctx context.Context) (Store, error) {
	return infras3.OpenFromEnv(ctx)
}

// NewMockS3ForTests exposes the in-memory S3 mock for cross-package tests.
func NewMockS3ForTests() Store { return infras3.NewMockForTests() }
