package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub/v2"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/apptrail-sh/synchooks/internal/model"
)

// PubSubPublisher sends transition events to Google Cloud Pub/Sub
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicPath string
}

// ParseTopicPath parses a full Pub/Sub topic path and returns projectID and topicID.
// Expected format: projects/<project>/topics/<topic>
func ParseTopicPath(topicPath string) (projectID, topicID string, err error) {
	parts := strings.Split(topicPath, "/")
	if len(parts) != 4 || parts[0] != "projects" || parts[2] != "topics" || parts[1] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("invalid topic path %q: expected format projects/<project>/topics/<topic>", topicPath)
	}
	return parts[1], parts[3], nil
}

// NewPubSubPublisher creates a new Google Cloud Pub/Sub publisher
//
// Authentication is handled via Application Default Credentials (ADC):
//   - Workload Identity (GKE): Auto-detected from metadata server (recommended)
//   - Service Account JSON key: Set GOOGLE_APPLICATION_CREDENTIALS env var
//   - Default credentials: gcloud auth application-default login
func NewPubSubPublisher(ctx context.Context, topicPath string) (*PubSubPublisher, error) {
	projectID, topicID, err := ParseTopicPath(topicPath)
	if err != nil {
		return nil, err
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	// Events for the same parent are delivered in publish order.
	// The subscription must also have message ordering enabled.
	publisher := client.Publisher(topicID)
	publisher.EnableMessageOrdering = true

	return &PubSubPublisher{
		client:    client,
		publisher: publisher,
		topicPath: topicPath,
	}, nil
}

// Attributes returns the message attributes for an event.
func Attributes(event model.TransitionEventPayload) map[string]string {
	attributes := map[string]string{
		"cluster_name":    event.Source.ClusterID,
		"namespace":       event.Parent.Namespace,
		"parent_name":     event.Parent.Name,
		"parent_kind":     event.Parent.Kind,
		"controller":      event.Controller,
		"transition_kind": string(event.Kind),
	}
	if event.ActiveColor != "" {
		attributes["active_color"] = event.ActiveColor
	}
	return attributes
}

// PublishBatch publishes every event and waits for all results. Failures are joined.
func (p *PubSubPublisher) PublishBatch(ctx context.Context, events []model.TransitionEventPayload) error {
	logger := log.FromContext(ctx)

	results := make([]*pubsub.PublishResult, 0, len(events))
	published := make([]model.TransitionEventPayload, 0, len(events))
	var errs []error

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Error(err, "Failed to marshal transition event", "eventID", event.EventID)
			errs = append(errs, fmt.Errorf("failed to marshal event %s: %w", event.EventID, err))
			continue
		}

		orderingKey := event.OrderingKey()
		results = append(results, p.publisher.Publish(ctx, &pubsub.Message{
			Data:        data,
			Attributes:  Attributes(event),
			OrderingKey: orderingKey,
		}))
		published = append(published, event)
	}

	for i, result := range results {
		event := published[i]
		msgID, err := result.Get(ctx)
		if err != nil {
			logger.Error(err, "Failed to publish transition event to Pub/Sub",
				"topic", p.topicPath,
				"eventID", event.EventID,
			)
			// A failed ordering key is paused until resumed; later batches may retry it.
			p.publisher.ResumePublish(event.OrderingKey())
			errs = append(errs, fmt.Errorf("failed to publish event %s to pubsub: %w", event.EventID, err))
			continue
		}
		logger.V(1).Info("Transition event published to Google Pub/Sub",
			"topic", p.topicPath,
			"eventID", event.EventID,
			"messageID", msgID,
		)
	}

	logger.Info("Transition batch published to Google Pub/Sub",
		"topic", p.topicPath,
		"eventCount", len(events),
		"failed", len(errs),
	)
	return errors.Join(errs...)
}

// Stop stops the publisher and closes the client
func (p *PubSubPublisher) Stop() {
	if p.publisher != nil {
		p.publisher.Stop()
	}
	if p.client != nil {
		_ = p.client.Close()
	}
}
