package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"webpconv/converter"
	"webpconv/failures"
	"webpconv/logger"
	"webpconv/models"
	"webpconv/success"
	"webpconv/taskqueue"
	"webpconv/writerbackends"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("run not found")
	ErrAlreadyFinished    = errors.New("run already finished")
	ErrPublishUnavailable = errors.New("no publish target configured")
)

// PublisherFunc builds the publish sink for a run writing into outputFolder
type PublisherFunc func(ctx context.Context, outputFolder string) (*writerbackends.Publisher, error)

// SinkFunc builds an additional progress sink for a run
type SinkFunc func(ctx context.Context, runID string) converter.Sink

// Config wires a Manager to its collaborators. Only Converter is required.
type Config struct {
	Converter *converter.Converter
	Publisher PublisherFunc
	Notifier  SinkFunc
	// Persist keeps queued runs in the task queue and finished runs in the
	// success and failure stores. The stores must be open.
	Persist bool
}

type run struct {
	id      string
	request models.RunRequest

	state       JobState
	submittedAt time.Time
	startedAt   time.Time
	finishedAt  time.Time
	summary     *models.ConversionSummary
	err         error

	events          *converter.Collector
	handle          *converter.Handle
	publisher       *writerbackends.Publisher
	cancelRequested bool
	done            chan struct{}
}

// Manager executes submitted runs one at a time in submission order
type Manager struct {
	cfg Config

	mu      sync.RWMutex
	runs    map[string]*run
	order   []string // all run ids, submission order
	pending []string // ids waiting for the worker
	wake    chan struct{}

	wg sync.WaitGroup
}

func NewManager(cfg Config) *Manager {
	if cfg.Converter == nil {
		cfg.Converter = converter.New(nil)
	}
	return &Manager{
		cfg:  cfg,
		runs: make(map[string]*run),
		wake: make(chan struct{}, 1),
	}
}

// Submit validates the request and queues it. Invalid options are rejected
// here and never become a run.
func (m *Manager) Submit(req models.RunRequest) (string, error) {
	if err := converter.Validate(req.Options); err != nil {
		return "", err
	}
	if req.Publish && m.cfg.Publisher == nil {
		return "", ErrPublishUnavailable
	}

	queued := taskqueue.QueuedRun{ID: uuid.NewString(), Request: req, SubmittedAt: time.Now()}
	if m.cfg.Persist {
		if err := taskqueue.Enqueue(queued); err != nil {
			return "", fmt.Errorf("persist run: %w", err)
		}
	}

	m.add(queued)
	logger.Infof("Queued run %s for %s", queued.ID, req.Options.InputFolder)
	return queued.ID, nil
}

// Resume re-queues runs left in the task queue by a previous process.
// Runs whose options no longer validate are dropped.
func (m *Manager) Resume() (int, error) {
	queued, err := taskqueue.Pending()
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, q := range queued {
		m.mu.RLock()
		_, known := m.runs[q.ID]
		m.mu.RUnlock()
		if known {
			continue
		}
		if err := converter.Validate(q.Request.Options); err != nil {
			logger.Warnf("Dropping queued run %s: %v", q.ID, err)
			if err := taskqueue.Dequeue(q.ID); err != nil {
				logger.Errorf("Failed to drop queued run %s: %v", q.ID, err)
			}
			continue
		}
		m.add(q)
		resumed++
	}
	if resumed > 0 {
		logger.Infof("Resumed %d queued runs", resumed)
	}
	return resumed, nil
}

func (m *Manager) add(q taskqueue.QueuedRun) {
	r := &run{
		id:          q.ID,
		request:     q.Request,
		state:       JobStatePending,
		submittedAt: q.SubmittedAt,
		events:      &converter.Collector{},
		done:        make(chan struct{}),
	}

	m.mu.Lock()
	m.runs[r.id] = r
	m.order = append(m.order, r.id)
	m.pending = append(m.pending, r.id)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Start launches the worker. It stops when ctx is cancelled; a run still
// processing at that moment is cancelled but stays queued for Resume.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			r := m.next()
			if r == nil {
				select {
				case <-ctx.Done():
					return
				case <-m.wake:
					continue
				}
			}
			if ctx.Err() != nil {
				return
			}
			m.execute(ctx, r)
		}
	}()
}

// Wait blocks until the worker started by Start has returned
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) next() *run {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.pending) > 0 {
		id := m.pending[0]
		m.pending = m.pending[1:]
		if r := m.runs[id]; r != nil && r.state == JobStatePending {
			return r
		}
	}
	return nil
}

func (m *Manager) execute(ctx context.Context, r *run) {
	opts := r.request.Options

	// cancelled between next() and here: build nothing
	m.mu.RLock()
	state := r.state
	m.mu.RUnlock()
	if state != JobStatePending {
		return
	}

	sinks := converter.MultiSink{r.events, converter.LogSink}
	if m.cfg.Persist {
		sinks = append(sinks, failures.Recorder(r.id))
	}
	if m.cfg.Notifier != nil {
		sinks = append(sinks, m.cfg.Notifier(ctx, r.id))
	}

	var publisher *writerbackends.Publisher
	if r.request.Publish {
		p, err := m.cfg.Publisher(ctx, opts.OutputFolder)
		if err != nil {
			m.finish(ctx, r, models.ConversionSummary{}, fmt.Errorf("%w: %v", ErrPublishUnavailable, err))
			return
		}
		publisher = p
		sinks = append(sinks, publisher)
	}

	m.mu.Lock()
	if r.state != JobStatePending {
		m.mu.Unlock()
		logger.Debugf("Run %s cancelled while its publisher was built", r.id)
		return
	}
	h, err := m.cfg.Converter.Start(ctx, opts, sinks)
	if err != nil {
		m.mu.Unlock()
		m.finish(ctx, r, models.ConversionSummary{}, err)
		return
	}
	r.state = JobStateProcessing
	r.startedAt = time.Now()
	r.handle = h
	r.publisher = publisher
	m.mu.Unlock()

	logger.Infof("Processing run %s", r.id)
	summary, err := h.Wait()
	m.finish(ctx, r, summary, err)
}

func (m *Manager) finish(ctx context.Context, r *run, summary models.ConversionSummary, err error) {
	m.mu.Lock()
	if r.state.Finished() {
		m.mu.Unlock()
		return
	}
	switch {
	case err == nil:
		r.state = JobStateCompleted
		r.summary = &summary
	case converter.IsCancelled(err):
		r.state = JobStateCancelled
	default:
		r.state = JobStateFailed
	}
	r.err = err
	r.finishedAt = time.Now()
	// shutdown, not a user request: leave the run queued so Resume picks it up
	interrupted := r.state == JobStateCancelled && !r.cancelRequested && ctx.Err() != nil
	published := 0
	if r.publisher != nil {
		published, _ = r.publisher.Stats()
	}
	state := r.state
	close(r.done)
	m.mu.Unlock()

	switch state {
	case JobStateCompleted:
		logger.Infof("Run %s completed: %d converted, %d skipped, %d failed",
			r.id, summary.Converted, summary.Skipped, summary.Failed)
	case JobStateCancelled:
		logger.Infof("Run %s cancelled", r.id)
	default:
		logger.Errorf("Run %s failed: %v", r.id, err)
	}

	if !m.cfg.Persist {
		return
	}
	if state == JobStateCompleted {
		record := success.RunRecord{ID: r.id, Options: r.request.Options, Summary: summary, Published: published}
		if err := success.StoreRun(record); err != nil {
			logger.Errorf("Failed to store run record for %s: %v", r.id, err)
		}
	}
	if !interrupted {
		if err := taskqueue.Dequeue(r.id); err != nil {
			logger.Errorf("Failed to remove run %s from queue: %v", r.id, err)
		}
	}
}

// Cancel stops a run. A pending run is dropped before it starts; a
// processing run stops at the next file boundary.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	r, ok := m.runs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch r.state {
	case JobStatePending:
		r.state = JobStateCancelled
		r.err = converter.ErrCancelled
		r.finishedAt = time.Now()
		close(r.done)
		m.mu.Unlock()
		logger.Infof("Cancelled queued run %s", id)
		if m.cfg.Persist {
			if err := taskqueue.Dequeue(id); err != nil {
				logger.Errorf("Failed to remove run %s from queue: %v", id, err)
			}
		}
		return nil
	case JobStateProcessing:
		r.cancelRequested = true
		r.handle.Cancel()
		m.mu.Unlock()
		logger.Infof("Cancellation requested for run %s", id)
		return nil
	default:
		state := r.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrAlreadyFinished, id, state)
	}
}

// Get returns a snapshot of the run including the events seen so far
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s := r.snapshot()
	s.Events = r.events.Events()
	return s, nil
}

// List returns snapshots of all runs in submission order, without events
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.runs[id].snapshot())
	}
	return out
}

// Done returns a channel closed once the run has finished
func (m *Manager) Done(id string) (<-chan struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.done, nil
}

// snapshot must be called with m.mu held
func (r *run) snapshot() Snapshot {
	s := Snapshot{
		ID:          r.id,
		State:       r.state,
		Options:     r.request.Options,
		Publish:     r.request.Publish,
		SubmittedAt: r.submittedAt,
		StartedAt:   r.startedAt,
		FinishedAt:  r.finishedAt,
	}
	if r.summary != nil {
		summary := *r.summary
		s.Summary = &summary
	}
	if r.err != nil {
		s.Error = r.err.Error()
	}
	if r.publisher != nil {
		s.Published, s.PublishFailed = r.publisher.Stats()
	}
	return s
}
