package writerbackends

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"webpconv/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// UploadToMinio puts reader into a MinIO bucket.
// accessInfo: endpoint, accessKey, secretKey, bucket, optional useSSL and region.
func UploadToMinio(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	endpoint := accessInfo["endpoint"]
	bucket := accessInfo["bucket"]
	key := accessInfo[KeyField]
	if endpoint == "" || bucket == "" {
		return fmt.Errorf("missing endpoint or bucket")
	}
	secure, _ := strconv.ParseBool(accessInfo["useSSL"])

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessInfo["accessKey"], accessInfo["secretKey"], ""),
		Secure: secure,
		Region: accessInfo["region"],
	})
	if err != nil {
		return fmt.Errorf("minio connection: %w", err)
	}

	// -1 lets the client stream with multipart when the size is unknown
	_, err = client.PutObject(ctx, bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s to bucket %s: %w", key, bucket, err)
	}

	logger.Debugf("Uploaded object '%s' to MinIO bucket '%s'", key, bucket)
	return nil
}
