package hooks

import (
	"context"
	"sync"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/apptrail-sh/synchooks/internal/model"
)

// BatchConfig holds configuration for event batching
type BatchConfig struct {
	FlushWindow  time.Duration // Time window for batching events
	MaxBatchSize int           // Maximum events per batch
}

// DefaultBatchConfig returns the default batching configuration
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		FlushWindow:  2 * time.Second,
		MaxBatchSize: 100,
	}
}

// TransitionPublisher is the interface for publishing transition events (batched)
type TransitionPublisher interface {
	PublishBatch(ctx context.Context, events []model.TransitionEventPayload) error
}

// TransitionQueue handles batching and publishing of transition events
type TransitionQueue struct {
	eventChan  <-chan model.TransitionEventPayload
	publishers []TransitionPublisher
	config     BatchConfig

	mu     sync.Mutex
	buffer []model.TransitionEventPayload
	timer  *time.Timer
}

// NewTransitionQueue creates a new batching transition event queue
func NewTransitionQueue(
	eventChan <-chan model.TransitionEventPayload,
	publishers []TransitionPublisher,
	config BatchConfig,
) *TransitionQueue {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = DefaultBatchConfig().MaxBatchSize
	}
	if config.FlushWindow <= 0 {
		config.FlushWindow = DefaultBatchConfig().FlushWindow
	}
	return &TransitionQueue{
		eventChan:  eventChan,
		publishers: publishers,
		config:     config,
		buffer:     make([]model.TransitionEventPayload, 0, config.MaxBatchSize),
	}
}

// Loop processes events until ctx is done or the channel is closed, then flushes what is buffered.
func (q *TransitionQueue) Loop(ctx context.Context) error {
	logger := log.FromContext(ctx)

	logger.Info("Transition queue started",
		"publishers", len(q.publishers),
		"flushWindow", q.config.FlushWindow,
		"maxBatchSize", q.config.MaxBatchSize,
	)

	// Publishing continues past cancellation so the final flush is not aborted.
	publishCtx := context.WithoutCancel(ctx)

	for {
		select {
		case event, ok := <-q.eventChan:
			if !ok {
				q.flush(publishCtx)
				return nil
			}
			q.addEvent(publishCtx, event)

		case <-ctx.Done():
			q.drain(publishCtx)
			return nil
		}
	}
}

// drain moves whatever is already queued into the buffer and flushes it.
func (q *TransitionQueue) drain(ctx context.Context) {
	for {
		select {
		case event, ok := <-q.eventChan:
			if !ok {
				q.flush(ctx)
				return
			}
			q.addEvent(ctx, event)
		default:
			q.flush(ctx)
			return
		}
	}
}

func (q *TransitionQueue) addEvent(ctx context.Context, event model.TransitionEventPayload) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.buffer = append(q.buffer, event)

	// Start timer on first event
	if len(q.buffer) == 1 {
		q.timer = time.AfterFunc(q.config.FlushWindow, func() {
			q.flush(ctx)
		})
	}

	// Flush immediately if batch is full
	if len(q.buffer) >= q.config.MaxBatchSize {
		q.flushLocked(ctx)
	}
}

func (q *TransitionQueue) flush(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flushLocked(ctx)
}

func (q *TransitionQueue) flushLocked(ctx context.Context) {
	if len(q.buffer) == 0 {
		return
	}

	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}

	logger := log.FromContext(ctx)

	events := make([]model.TransitionEventPayload, len(q.buffer))
	copy(events, q.buffer)
	q.buffer = q.buffer[:0]

	logger.Info("Flushing transition event batch",
		"eventCount", len(events),
		"publishers", len(q.publishers),
	)

	for _, publisher := range q.publishers {
		if err := publisher.PublishBatch(ctx, events); err != nil {
			logger.Error(err, "Failed to publish transition event batch")
		}
	}
}
