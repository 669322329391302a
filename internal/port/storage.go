package port

import (
	"context"
	"io"
	"time"

	"github.com/strogmv/assembler/assembler"
)

// DescriptorStorage holds deployment descriptors by key.
type DescriptorStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

// FailureRepository persists and lists deployment failures.
type FailureRepository interface {
	assembler.ExceptionStore
	ListDeploymentFailures(ctx context.Context, appID string, limit int) ([]assembler.DeploymentFailure, error)
}
