package storage

import (
	"strings"

	"github.com/timmy/fitetl/internal/config"
)

// NewStorage creates an S3 client from configuration, detecting the storage
// type from the endpoint when none is set.
// Parameters:
//   - cfg: storage configuration including endpoint, credentials and bucket.
// Returns:
//   - *S3Storage: initialized client.
//   - error: non-nil if the client cannot be created.
func NewStorage(cfg config.StorageConfig) (*S3Storage, error) {
	t := StorageType(cfg.Type)
	if t == "" {
		t = detectStorageType(cfg.Endpoint)
	}
	return NewS3Storage(cfg, t)
}

func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case endpoint == "", strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	default:
		return StorageTypeS3Compatible
	}
}
