package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"webpconv/models"

	"github.com/fsnotify/fsnotify"
)

func TestRelevant(t *testing.T) {
	cases := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/in/a.png", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/in/a.JPG", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/in/a.png", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "/in/a.png", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/in/a.webp", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/in/.a.png", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/in/notes.txt", Op: fsnotify.Write}, false},
	}
	for _, tc := range cases {
		if got := relevant(tc.ev); got != tc.want {
			t.Errorf("relevant(%v) = %v, want %v", tc.ev, got, tc.want)
		}
	}
}

func TestWatcherTriggersAfterChange(t *testing.T) {
	in := t.TempDir()
	opts := models.ConversionOptions{InputFolder: in, IncludeSubfolders: true}

	w, err := New(opts, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Close()

	calls := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx, func(context.Context) { calls <- struct{}{} })

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected an initial run")
	}

	if err := os.WriteFile(filepath.Join(in, "ignored.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "photo.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for a run after adding photo.png")
	}
}

func TestWatcherFollowsNewSubfolders(t *testing.T) {
	in := t.TempDir()
	w, err := New(models.ConversionOptions{InputFolder: in, IncludeSubfolders: true}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Close()

	calls := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, func(context.Context) { calls <- struct{}{} })
	<-calls

	sub := filepath.Join(in, "new")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	// give the watcher a moment to register the new folder
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "deep.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for a run after adding new/deep.jpg")
	}
}

func TestNewRejectsMissingFolder(t *testing.T) {
	if _, err := New(models.ConversionOptions{InputFolder: filepath.Join(t.TempDir(), "missing")}, 0); err == nil {
		t.Error("Expected an error for a missing folder")
	}
}
