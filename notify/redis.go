package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"webpconv/converter"
	"webpconv/logger"
	"webpconv/models"

	"github.com/redis/go-redis/v9"
)

// Event is the JSON message published for every progress event
type Event struct {
	RunID   string                 `json:"run_id"`
	Input   string                 `json:"input"`
	Output  string                 `json:"output"`
	State   models.ConversionState `json:"state"`
	Message string                 `json:"message"`
	Time    time.Time              `json:"time"`
}

// Options configures the Redis connection and target channel
type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Notifier publishes progress events to a Redis pub/sub channel
type Notifier struct {
	client  *redis.Client
	channel string
}

// NewNotifier connects to Redis and checks the connection with a PING
func NewNotifier(ctx context.Context, opts Options) (*Notifier, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is empty")
	}
	if opts.Channel == "" {
		return nil, errors.New("redis channel is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Notifier{client: client, channel: opts.Channel}, nil
}

func (n *Notifier) Close() error {
	return n.client.Close()
}

// Payload encodes one progress event of runID
func Payload(runID string, p models.ConversionProgress, at time.Time) ([]byte, error) {
	return json.Marshal(Event{
		RunID:   runID,
		Input:   p.InputFileName,
		Output:  p.OutputFileName,
		State:   p.State,
		Message: p.Message,
		Time:    at.UTC(),
	})
}

// Sink returns a progress sink publishing runID's events. Publish failures
// are logged and dropped.
func (n *Notifier) Sink(ctx context.Context, runID string) converter.Sink {
	return converter.SinkFunc(func(p models.ConversionProgress) {
		payload, err := Payload(runID, p, time.Now())
		if err != nil {
			logger.Errorf("Failed to encode progress event: %v", err)
			return
		}
		if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
			logger.Warnf("Failed to publish progress of %s to %s: %v", p.InputFileName, n.channel, err)
		}
	})
}
