package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ReportArchive defines the interface for archiving generated
// reconciliation reports in object storage.
type ReportArchive interface {
	// StoreReport uploads a serialized report under the given object key.
	StoreReport(ctx context.Context, objectKey string, payload []byte, contentType string) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for retrieving an archived report directly from the
	// storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an archived report from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}
