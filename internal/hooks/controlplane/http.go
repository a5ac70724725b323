package controlplane

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/apptrail-sh/synchooks/internal/model"
)

// BatchRequest is the body posted to the control plane.
type BatchRequest struct {
	Events []model.TransitionEventPayload `json:"events"`
}

// HTTPPublisher sends transition event batches to the AppTrail Control Plane via HTTP
type HTTPPublisher struct {
	client   *resty.Client
	endpoint string
}

// NewHTTPPublisher creates a new HTTP publisher for the control plane
func NewHTTPPublisher(endpoint string) *HTTPPublisher {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &HTTPPublisher{
		client:   client,
		endpoint: endpoint,
	}
}

// PublishBatch posts a batch of transition events to the control plane
func (p *HTTPPublisher) PublishBatch(ctx context.Context, events []model.TransitionEventPayload) error {
	if len(events) == 0 {
		return nil
	}
	logger := log.FromContext(ctx)

	logger.Info("Publishing transition batch to control plane",
		"endpoint", p.endpoint,
		"eventCount", len(events),
	)

	var errorResponse map[string]interface{}
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(BatchRequest{Events: events}).
		SetError(&errorResponse).
		Post(p.endpoint)

	if err != nil {
		logger.Error(err, "Failed to send transition batch to control plane",
			"endpoint", p.endpoint,
		)
		return fmt.Errorf("failed to send transition batch to control plane: %w", err)
	}

	if !resp.IsSuccess() {
		logger.Error(nil, "Control plane returned error",
			"statusCode", resp.StatusCode(),
			"status", resp.Status(),
			"error", errorResponse,
			"body", resp.String(),
			"endpoint", p.endpoint,
		)
		return fmt.Errorf("control plane returned error status %d: %s", resp.StatusCode(), resp.String())
	}

	logger.Info("Transition batch successfully published to control plane",
		"endpoint", p.endpoint,
		"eventCount", len(events),
		"statusCode", resp.StatusCode(),
	)

	return nil
}

// PublishHeartbeat posts a heartbeat to the same endpoint; the control plane tells it apart
// from event batches by its messageType.
func (p *HTTPPublisher) PublishHeartbeat(ctx context.Context, payload model.HeartbeatPayload) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(p.endpoint)
	if err != nil {
		return fmt.Errorf("failed to send heartbeat to control plane: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("control plane returned error status %d: %s", resp.StatusCode(), resp.String())
	}

	log.FromContext(ctx).V(1).Info("Heartbeat published to control plane",
		"eventID", payload.EventID,
		"statusCode", resp.StatusCode(),
	)
	return nil
}

// Close releases the underlying HTTP client.
func (p *HTTPPublisher) Close() error {
	return p.client.Close()
}
