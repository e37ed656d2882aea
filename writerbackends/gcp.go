package writerbackends

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"webpconv/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// decodeServiceAccount accepts the service account key as base64 or raw JSON
func decodeServiceAccount(value string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded
	}
	return []byte(value)
}

// UploadToGCSWithJSON uploads reader to a Google Cloud Storage object using
// the service account key in accessInfo["credentialsJSON"].
func UploadToGCSWithJSON(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	bucketName := accessInfo["bucket"]
	objectName := accessInfo[KeyField]
	if bucketName == "" || accessInfo["credentialsJSON"] == "" {
		return fmt.Errorf("missing bucket or credentialsJSON")
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(decodeServiceAccount(accessInfo["credentialsJSON"])))
	if err != nil {
		return fmt.Errorf("storage.NewClient: %w", err)
	}
	defer client.Close()

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err = io.Copy(wc, reader); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Debugf("Uploaded object '%s' to bucket '%s'", objectName, bucketName)
	return nil
}
