package job

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"webpconv/converter"
	"webpconv/encoder"
	"webpconv/failures"
	"webpconv/models"
	"webpconv/success"
	"webpconv/taskqueue"
	"webpconv/writerbackends"

	"github.com/disintegration/imaging"
)

func makeInput(t *testing.T, names ...string) models.ConversionOptions {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "in")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		img := imaging.New(16, 16, color.NRGBA{B: 255, A: 255})
		if err := imaging.Save(img, filepath.Join(in, name)); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
	}
	opts := models.DefaultOptions()
	opts.InputFolder = in
	opts.OutputFolder = filepath.Join(root, "out")
	return opts
}

func waitDone(t *testing.T, m *Manager, id string) Snapshot {
	t.Helper()
	done, err := m.Done(id)
	if err != nil {
		t.Fatalf("Done failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatalf("Run %s did not finish", id)
	}
	snap, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return snap
}

func startManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		m.Wait()
	})
	return m
}

func openStores(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	if err := success.Init(filepath.Join(dir, "success.db")); err != nil {
		t.Fatal(err)
	}
	if err := failures.Init(filepath.Join(dir, "failures.db")); err != nil {
		t.Fatal(err)
	}
	if err := taskqueue.OpenRunQueueDB(filepath.Join(dir, "RunQueue.db")); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		success.Close()
		failures.Close()
		taskqueue.CloseRunQueueDB()
	})
}

func TestSubmitRejectsInvalidOptions(t *testing.T) {
	m := NewManager(Config{})
	_, err := m.Submit(models.RunRequest{Options: models.ConversionOptions{InputFolder: "/definitely/missing", OutputFolder: "x", Quality: 80}})
	if !errors.Is(err, converter.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("Rejected submissions must not create runs")
	}
}

func TestSubmitPublishWithoutTarget(t *testing.T) {
	m := NewManager(Config{})
	_, err := m.Submit(models.RunRequest{Options: makeInput(t), Publish: true})
	if !errors.Is(err, ErrPublishUnavailable) {
		t.Errorf("Expected ErrPublishUnavailable, got %v", err)
	}
}

func TestRunCompletes(t *testing.T) {
	m := startManager(t, Config{})
	opts := makeInput(t, "a.png", "b.jpg")

	id, err := m.Submit(models.RunRequest{Options: opts})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	snap := waitDone(t, m, id)
	if snap.State != JobStateCompleted {
		t.Fatalf("Expected completed, got %s (%s)", snap.State, snap.Error)
	}
	if snap.Summary == nil || snap.Summary.Converted != 2 {
		t.Errorf("Unexpected summary: %+v", snap.Summary)
	}
	if len(snap.Events) != 4 {
		t.Errorf("Expected 4 events, got %d", len(snap.Events))
	}
	if list := m.List(); len(list) != 1 || list[0].Events != nil {
		t.Errorf("List should return one run without events, got %+v", list)
	}
}

func TestCancelPendingRun(t *testing.T) {
	m := NewManager(Config{})
	id, err := m.Submit(models.RunRequest{Options: makeInput(t, "a.png")})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := m.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	snap, _ := m.Get(id)
	if snap.State != JobStateCancelled {
		t.Errorf("Expected cancelled, got %s", snap.State)
	}
	if err := m.Cancel(id); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("Expected ErrAlreadyFinished, got %v", err)
	}
	if err := m.Cancel("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCancelledRunBuildsNoPublisher(t *testing.T) {
	calls := 0
	publish := func(ctx context.Context, out string) (*writerbackends.Publisher, error) {
		calls++
		return writerbackends.NewPublisher(ctx, writerbackends.Target{Backend: writerbackends.BackendLocal}, out), nil
	}
	m := NewManager(Config{Publisher: publish})
	id, err := m.Submit(models.RunRequest{Options: makeInput(t, "a.png"), Publish: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// the worker picked the run up, then the user cancelled it
	r := m.next()
	if r == nil || r.id != id {
		t.Fatalf("Expected run %s from the queue, got %+v", id, r)
	}
	if err := m.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	m.execute(context.Background(), r)

	if calls != 0 {
		t.Errorf("Publisher built %d times for a cancelled run", calls)
	}
	snap, _ := m.Get(id)
	if snap.State != JobStateCancelled || !snap.StartedAt.IsZero() {
		t.Errorf("Cancelled run must never start, got %+v", snap)
	}
}

type gate struct {
	started chan struct{}
	release chan struct{}
}

func (g *gate) encode(ctx context.Context, img image.Image, w io.Writer, opts encoder.EncodeOptions) error {
	g.started <- struct{}{}
	<-g.release
	return encoder.EncodeNative(ctx, img, w, opts)
}

func TestCancelProcessingRun(t *testing.T) {
	g := &gate{started: make(chan struct{}, 4), release: make(chan struct{})}
	m := startManager(t, Config{Converter: converter.New(g.encode)})
	opts := makeInput(t, "a.png", "b.png")

	id, err := m.Submit(models.RunRequest{Options: opts})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	select {
	case <-g.started:
	case <-time.After(30 * time.Second):
		t.Fatal("Encoding never started")
	}

	if err := m.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	close(g.release)

	snap := waitDone(t, m, id)
	if snap.State != JobStateCancelled {
		t.Fatalf("Expected cancelled, got %s", snap.State)
	}
	if snap.Summary != nil {
		t.Error("A cancelled run has no summary")
	}
	if _, err := os.Stat(filepath.Join(opts.OutputFolder, "a.webp")); err != nil {
		t.Error("The file in progress should have completed")
	}
	if _, err := os.Stat(filepath.Join(opts.OutputFolder, "b.webp")); err == nil {
		t.Error("No file should start after cancellation")
	}
}

func TestPersistedRunIsRecorded(t *testing.T) {
	openStores(t)
	m := startManager(t, Config{Persist: true})
	opts := makeInput(t, "a.png")
	if err := os.WriteFile(filepath.Join(opts.InputFolder, "broken.png"), []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	id, err := m.Submit(models.RunRequest{Options: opts})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	snap := waitDone(t, m, id)
	if snap.State != JobStateCompleted {
		t.Fatalf("Expected completed, got %s", snap.State)
	}

	record, err := success.GetRun(id)
	if err != nil || record == nil {
		t.Fatalf("Expected a run record, got %v (%v)", record, err)
	}
	if record.Summary.Converted != 1 || record.Summary.Failed != 1 {
		t.Errorf("Unexpected stored summary: %+v", record.Summary)
	}

	failed, err := failures.ListRunFailures(id)
	if err != nil || len(failed) != 1 || failed[0].InputFile != "broken.png" {
		t.Errorf("Expected broken.png failure, got %+v (%v)", failed, err)
	}

	queued, _ := taskqueue.Pending()
	if len(queued) != 0 {
		t.Errorf("Finished runs must leave the queue, got %+v", queued)
	}
}

func TestResumeQueuedRuns(t *testing.T) {
	openStores(t)
	opts := makeInput(t, "a.png")

	taskqueue.Enqueue(taskqueue.QueuedRun{ID: "left-over", Request: models.RunRequest{Options: opts}, SubmittedAt: time.Now()})
	taskqueue.Enqueue(taskqueue.QueuedRun{ID: "stale", SubmittedAt: time.Now(),
		Request: models.RunRequest{Options: models.ConversionOptions{InputFolder: "/gone", OutputFolder: "x", Quality: 80}}})

	m := NewManager(Config{Persist: true})
	resumed, err := m.Resume()
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed != 1 {
		t.Errorf("Expected 1 resumed run, got %d", resumed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); m.Wait() }()
	m.Start(ctx)

	snap := waitDone(t, m, "left-over")
	if snap.State != JobStateCompleted {
		t.Errorf("Expected completed, got %s", snap.State)
	}
	queued, _ := taskqueue.Pending()
	if len(queued) != 0 {
		t.Errorf("Queue should be empty, got %+v", queued)
	}
}

func TestPublishedRun(t *testing.T) {
	mirror := t.TempDir()
	publish := func(ctx context.Context, out string) (*writerbackends.Publisher, error) {
		return writerbackends.NewPublisher(ctx, writerbackends.Target{
			Backend:    writerbackends.BackendLocal,
			AccessInfo: map[string]string{"baseDir": mirror},
		}, out), nil
	}
	m := startManager(t, Config{Publisher: publish})

	id, err := m.Submit(models.RunRequest{Options: makeInput(t, "a.png", "b.png"), Publish: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	snap := waitDone(t, m, id)
	if snap.State != JobStateCompleted || snap.Published != 2 {
		t.Errorf("Expected 2 published files, got %+v", snap)
	}
	if _, err := os.Stat(filepath.Join(mirror, "b.webp")); err != nil {
		t.Errorf("Expected b.webp in mirror: %v", err)
	}
}

func TestJobStateText(t *testing.T) {
	for st := JobStatePending; st <= JobStateCancelled; st++ {
		text, _ := st.MarshalText()
		var back JobState
		if err := back.UnmarshalText(text); err != nil || back != st {
			t.Errorf("State %s did not survive text encoding", st)
		}
	}
}
