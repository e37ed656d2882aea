package writerbackends

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sync"

	"webpconv/logger"
	"webpconv/models"
)

// Target describes where converted files are published
type Target struct {
	Backend    string
	Prefix     string            // prepended to every object key
	AccessInfo map[string]string // backend settings and credentials
}

// Publisher uploads every successfully converted file of a run to a Target.
// It is a progress sink; upload errors are logged and counted but never
// change the outcome of the run.
type Publisher struct {
	ctx        context.Context
	target     Target
	outputRoot string

	mu        sync.Mutex
	published int
	failed    int
}

// NewPublisher returns a Publisher for a run writing into outputRoot
func NewPublisher(ctx context.Context, target Target, outputRoot string) *Publisher {
	return &Publisher{ctx: ctx, target: target, outputRoot: outputRoot}
}

// ObjectKey maps an output display name to the key used on the backend
func (p *Publisher) ObjectKey(outputName string) string {
	return path.Join(p.target.Prefix, outputName)
}

func (p *Publisher) Accept(ev models.ConversionProgress) {
	if ev.State != models.StateSucceeded {
		return
	}

	err := p.upload(ev.OutputFileName)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failed++
		logger.Warnf("Failed to publish %s to %s: %v", ev.OutputFileName, p.target.Backend, err)
		return
	}
	p.published++
}

func (p *Publisher) upload(outputName string) error {
	file, err := os.Open(filepath.Join(p.outputRoot, filepath.FromSlash(outputName)))
	if err != nil {
		return err
	}
	defer file.Close()

	info := make(map[string]string, len(p.target.AccessInfo)+1)
	for k, v := range p.target.AccessInfo {
		info[k] = v
	}
	info[KeyField] = p.ObjectKey(outputName)

	return WriteImage(p.ctx, info, file, p.target.Backend)
}

// Stats reports how many uploads succeeded and failed so far
func (p *Publisher) Stats() (published, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published, p.failed
}
