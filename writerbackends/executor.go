package writerbackends

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Backend names accepted by WriteImage
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendSFTP  = "sftp"
	BackendMinio = "minio"
)

// KeyField carries the destination object key (forward slashes) in accessInfo
const KeyField = "key"

const contentType = "image/webp"

var ErrUnknownBackend = errors.New("unknown backend type")

// Backends lists every supported backend name
func Backends() []string {
	return []string{BackendLocal, BackendS3, BackendGCS, BackendSFTP, BackendMinio}
}

// WriteImage streams reader to the backend named backendType. accessInfo
// holds the backend settings plus the destination under KeyField.
func WriteImage(ctx context.Context, accessInfo map[string]string, reader io.Reader, backendType string) error {
	if accessInfo[KeyField] == "" {
		return fmt.Errorf("missing %q in access info", KeyField)
	}

	switch backendType {
	case BackendLocal:
		if err := UploadToLocal(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to write to local directory: %w", err)
		}
	case BackendS3:
		if err := UploadToS3WithCreds(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to upload to S3: %w", err)
		}
	case BackendGCS:
		if err := UploadToGCSWithJSON(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to upload to GCS: %w", err)
		}
	case BackendSFTP:
		if err := UploadToSFTPWithCreds(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to upload to SFTP: %w", err)
		}
	case BackendMinio:
		if err := UploadToMinio(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to upload to MinIO: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, backendType)
	}
	return nil
}
