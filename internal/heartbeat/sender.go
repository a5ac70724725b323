// Package heartbeat periodically announces the hook server to the control plane.
package heartbeat

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/apptrail-sh/synchooks/internal/model"
)

// Publisher delivers heartbeats.
type Publisher interface {
	PublishHeartbeat(ctx context.Context, payload model.HeartbeatPayload) error
}

// Config holds configuration for the heartbeat sender
type Config struct {
	Interval  time.Duration
	ClusterID string
	Version   string
	Routes    []model.HookRoute
}

// DefaultInterval is used when Config.Interval is not positive.
const DefaultInterval = 5 * time.Minute

// Sender periodically sends heartbeats to its publishers.
type Sender struct {
	config     Config
	publishers []Publisher
}

func NewSender(config Config, publishers []Publisher) *Sender {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	return &Sender{
		config:     config,
		publishers: publishers,
	}
}

// Start sends one heartbeat immediately and then one per interval until ctx is done.
// Publish failures are logged and never stop the loop.
func (s *Sender) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("heartbeat-sender")

	logger.Info("Starting heartbeat sender",
		"interval", s.config.Interval,
		"clusterID", s.config.ClusterID,
		"routes", len(s.config.Routes),
		"publishers", len(s.publishers),
	)

	s.sendHeartbeat(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sendHeartbeat(ctx)
		case <-ctx.Done():
			logger.Info("Heartbeat sender stopped")
			return nil
		}
	}
}

func (s *Sender) sendHeartbeat(ctx context.Context) {
	logger := log.FromContext(ctx).WithName("heartbeat-sender")

	payload := model.NewHeartbeatPayload(s.config.ClusterID, s.config.Version, s.config.Routes)
	logger.V(1).Info("Sending heartbeat", "eventID", payload.EventID)

	for _, publisher := range s.publishers {
		if err := publisher.PublishHeartbeat(ctx, payload); err != nil {
			logger.Error(err, "Failed to publish heartbeat")
		}
	}
}
