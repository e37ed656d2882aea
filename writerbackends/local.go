package writerbackends

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"webpconv/logger"
)

// UploadToLocal copies reader to baseDir/key on the local file system. It is
// the mirror target for publishing to a shared folder or a directory served
// by another web server.
func UploadToLocal(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	baseDir := accessInfo["baseDir"]
	key := accessInfo[KeyField]
	if baseDir == "" {
		return errors.New("missing baseDir")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rel := filepath.FromSlash(strings.TrimPrefix(key, "/"))
	fullPath := filepath.Join(baseDir, rel)
	if r, err := filepath.Rel(baseDir, fullPath); err != nil || strings.HasPrefix(r, "..") {
		return fmt.Errorf("key %q escapes %s", key, baseDir)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}

	logger.Debugf("Copied '%s' to '%s'", key, fullPath)
	return file.Close()
}
