package writerbackends

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webpconv/models"
)

func TestWriteImageLocal(t *testing.T) {
	base := t.TempDir()
	info := map[string]string{"baseDir": base, KeyField: "photos/2024/a.webp"}

	if err := WriteImage(context.Background(), info, strings.NewReader("RIFF"), BackendLocal); err != nil {
		t.Fatalf("WriteImage failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(base, "photos", "2024", "a.webp"))
	if err != nil {
		t.Fatalf("Expected file to be written: %v", err)
	}
	if string(data) != "RIFF" {
		t.Errorf("Unexpected content %q", data)
	}
}

func TestWriteImageRejectsEscapingKey(t *testing.T) {
	info := map[string]string{"baseDir": t.TempDir(), KeyField: "../../etc/passwd"}
	if err := WriteImage(context.Background(), info, strings.NewReader("x"), BackendLocal); err == nil {
		t.Error("Expected an error for a key outside baseDir")
	}
}

func TestWriteImageUnknownBackend(t *testing.T) {
	info := map[string]string{KeyField: "a.webp"}
	err := WriteImage(context.Background(), info, strings.NewReader("x"), "ftp")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Expected ErrUnknownBackend, got %v", err)
	}
}

func TestWriteImageRequiresKey(t *testing.T) {
	err := WriteImage(context.Background(), map[string]string{"baseDir": t.TempDir()}, strings.NewReader("x"), BackendLocal)
	if err == nil {
		t.Error("Expected an error without a key")
	}
}

func TestPublisherUploadsSucceededFiles(t *testing.T) {
	out := t.TempDir()
	mirror := t.TempDir()
	if err := os.MkdirAll(filepath.Join(out, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(out, "sub", "a.webp"), []byte("a"), 0644)
	os.WriteFile(filepath.Join(out, "b.webp"), []byte("b"), 0644)

	p := NewPublisher(context.Background(), Target{
		Backend:    BackendLocal,
		Prefix:     "site/img",
		AccessInfo: map[string]string{"baseDir": mirror},
	}, out)

	p.Accept(models.ConversionProgress{InputFileName: "sub/a.png", OutputFileName: "sub/a.webp", State: models.StateProcessing})
	p.Accept(models.ConversionProgress{InputFileName: "sub/a.png", OutputFileName: "sub/a.webp", State: models.StateSucceeded})
	p.Accept(models.ConversionProgress{InputFileName: "b.png", OutputFileName: "b.webp", State: models.StateSkipped})
	p.Accept(models.ConversionProgress{InputFileName: "c.png", OutputFileName: "c.webp", State: models.StateSucceeded})

	published, failed := p.Stats()
	if published != 1 || failed != 1 {
		t.Errorf("Expected 1 published and 1 failed (missing c.webp), got %d/%d", published, failed)
	}
	if _, err := os.Stat(filepath.Join(mirror, "site", "img", "sub", "a.webp")); err != nil {
		t.Errorf("Expected mirrored file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(mirror, "site", "img", "b.webp")); err == nil {
		t.Error("Skipped files must not be published")
	}
}

func TestDecodeServiceAccount(t *testing.T) {
	raw := `{"type":"service_account"}`
	if got := string(decodeServiceAccount(raw)); got != raw {
		t.Errorf("Raw JSON should pass through, got %q", got)
	}
	if got := string(decodeServiceAccount("eyJ0eXBlIjoic2VydmljZV9hY2NvdW50In0=")); got != raw {
		t.Errorf("Base64 should be decoded, got %q", got)
	}
}
