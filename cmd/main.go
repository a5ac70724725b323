/*
Copyright 2024.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/apptrail-sh/synchooks/internal/buildinfo"
	"github.com/apptrail-sh/synchooks/internal/cluster"
	"github.com/apptrail-sh/synchooks/internal/config"
	"github.com/apptrail-sh/synchooks/internal/filter"
	"github.com/apptrail-sh/synchooks/internal/heartbeat"
	"github.com/apptrail-sh/synchooks/internal/hooks"
	"github.com/apptrail-sh/synchooks/internal/hooks/controlplane"
	"github.com/apptrail-sh/synchooks/internal/hooks/pubsub"
	"github.com/apptrail-sh/synchooks/internal/metrics"
	"github.com/apptrail-sh/synchooks/internal/model"
	"github.com/apptrail-sh/synchooks/internal/ordinal"
	"github.com/apptrail-sh/synchooks/internal/rollout"
	"github.com/apptrail-sh/synchooks/internal/server"
	"github.com/apptrail-sh/synchooks/internal/syncapi"
)

// eventBufferSize bounds transition events waiting for the publisher queue.
const eventBufferSize = 1000

var setupLog = ctrl.Log.WithName("setup")

// flags holds all command-line configuration
type flags struct {
	bindAddress       string
	hooksConfig       string
	shutdownTimeout   time.Duration
	controlPlaneURL   string
	clusterID         string
	pubsubTopic       string
	heartbeatInterval time.Duration

	notifyNamespaces        string
	notifyExcludeNamespaces string
	notifyRequireLabels     string
	notifyExcludeLabels     string
	notifyKinds             string

	zapOpts zap.Options
}

// publishers are the configured notification sinks.
type publishers struct {
	controlPlane *controlplane.HTTPPublisher
	pubsub       *pubsub.PubSubPublisher
}

func (p publishers) transitions() []hooks.TransitionPublisher {
	var out []hooks.TransitionPublisher
	if p.controlPlane != nil {
		out = append(out, p.controlPlane)
	}
	if p.pubsub != nil {
		out = append(out, p.pubsub)
	}
	return out
}

func (p publishers) close() {
	if p.controlPlane != nil {
		if err := p.controlPlane.Close(); err != nil {
			setupLog.Error(err, "failed to close control plane publisher")
		}
	}
	if p.pubsub != nil {
		p.pubsub.Stop()
	}
}

func main() {
	cfg := parseFlags()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&cfg.zapOpts)))
	metrics.Register()

	ctx := ctrl.SetupSignalHandler()
	version := buildinfo.Version()

	hooksConfig, err := config.Load(cfg.hooksConfig)
	if err != nil {
		setupLog.Error(err, "unable to load hooks config", "path", cfg.hooksConfig)
		os.Exit(1)
	}

	pubs := setupPublishers(ctx, &cfg)
	defer pubs.close()

	events := make(chan model.TransitionEventPayload, eventBufferSize)
	notifier := setupNotifier(cfg, pubs, events, version)

	router, err := setupRouter(hooksConfig, notifier)
	if err != nil {
		setupLog.Error(err, "unable to register hooks")
		os.Exit(1)
	}

	srv := server.New(server.Options{
		BindAddress:     cfg.bindAddress,
		ShutdownTimeout: cfg.shutdownTimeout,
	}, router, router.Paths())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })

	if transitionPubs := pubs.transitions(); len(transitionPubs) > 0 {
		queue := hooks.NewTransitionQueue(events, transitionPubs, hooks.DefaultBatchConfig())
		g.Go(func() error { return queue.Loop(gctx) })
	}

	if pubs.controlPlane != nil && cfg.heartbeatInterval > 0 {
		sender := heartbeat.NewSender(heartbeat.Config{
			Interval:  cfg.heartbeatInterval,
			ClusterID: cfg.clusterID,
			Version:   version,
			Routes:    hookRoutes(hooksConfig),
		}, []heartbeat.Publisher{pubs.controlPlane})
		g.Go(func() error { return sender.Start(gctx) })
	}

	setupLog.Info("starting sync hook server", "version", version, "routes", router.Paths())
	if err := g.Wait(); err != nil {
		setupLog.Error(err, "problem running sync hook server")
		pubs.close()
		os.Exit(1)
	}
}

func parseFlags() flags {
	var cfg flags

	flag.StringVar(&cfg.bindAddress, "bind-address", ":8080",
		"The address the hook, metrics and health endpoints bind to.")
	flag.StringVar(&cfg.hooksConfig, "hooks-config", "",
		"Path to a YAML file binding hook paths to controllers. Defaults to /sync/bluegreen, "+
			"/sync/ordinalset and /finalize/ordinalset.")
	flag.DurationVar(&cfg.shutdownTimeout, "shutdown-timeout", 30*time.Second,
		"How long in-flight hook calls may take to finish on shutdown.")
	flag.StringVar(&cfg.controlPlaneURL, "controlplane-url", "",
		"The URL of the AppTrail Control Plane transition endpoint (e.g., http://controlplane:3000/ingest/v1/hooks/events)")
	flag.StringVar(&cfg.clusterID, "cluster-id", os.Getenv("CLUSTER_ID"),
		"Unique identifier for this cluster (e.g., staging.stg01). Resolved from cloud metadata when empty.")
	flag.StringVar(&cfg.pubsubTopic, "pubsub-topic", os.Getenv("PUBSUB_TOPIC"),
		"Google Cloud Pub/Sub topic path (projects/<project>/topics/<topic>)")
	flag.DurationVar(&cfg.heartbeatInterval, "heartbeat-interval", heartbeat.DefaultInterval,
		"How often to announce the served hooks to the control plane. 0 disables heartbeats.")

	// Notification filter flags
	flag.StringVar(&cfg.notifyNamespaces, "notify-namespaces", "",
		"Comma-separated list of parent namespace patterns to publish transitions for (e.g., 'production-*,staging-*')")
	flag.StringVar(&cfg.notifyExcludeNamespaces, "notify-exclude-namespaces", "",
		"Comma-separated list of parent namespace patterns to never publish transitions for")
	flag.StringVar(&cfg.notifyRequireLabels, "notify-require-labels", "",
		"Comma-separated list of label keys a parent must carry (e.g., 'app.kubernetes.io/part-of')")
	flag.StringVar(&cfg.notifyExcludeLabels, "notify-exclude-labels", "",
		"Comma-separated list of label key=value pairs that silence a parent (e.g., 'synchooks.apptrail.sh/silence=true')")
	flag.StringVar(&cfg.notifyKinds, "notify-kinds", "",
		"Comma-separated list of transition kinds to publish (e.g., 'COLOR_SWAPPED,FINALIZED'). Empty publishes all.")

	cfg.zapOpts = zap.Options{Development: true}
	cfg.zapOpts.BindFlags(flag.CommandLine)
	flag.Parse()

	return cfg
}

func setupPublishers(ctx context.Context, cfg *flags) publishers {
	var pubs publishers
	if cfg.controlPlaneURL == "" && cfg.pubsubTopic == "" {
		setupLog.Info("No event publishers configured, transitions will only be exported as metrics")
		return pubs
	}

	if cfg.clusterID == "" {
		cfg.clusterID = resolveClusterID(ctx)
	}

	if cfg.controlPlaneURL != "" {
		pubs.controlPlane = controlplane.NewHTTPPublisher(cfg.controlPlaneURL)
		setupLog.Info("Control Plane publisher enabled",
			"endpoint", cfg.controlPlaneURL,
			"clusterID", cfg.clusterID)
	}

	if cfg.pubsubTopic != "" {
		pubsubPublisher, err := pubsub.NewPubSubPublisher(ctx, cfg.pubsubTopic)
		if err != nil {
			setupLog.Error(err, "unable to create Pub/Sub publisher",
				"hint", "Ensure valid credentials via Workload Identity, GOOGLE_APPLICATION_CREDENTIALS, or gcloud auth")
			pubs.close()
			os.Exit(1)
		}
		pubs.pubsub = pubsubPublisher
		setupLog.Info("Google Pub/Sub publisher enabled",
			"topic", cfg.pubsubTopic,
			"clusterID", cfg.clusterID)
	}

	return pubs
}

// resolveClusterID asks the cloud metadata service for the cluster identity.
// Publishing without a cluster ID is a configuration error.
func resolveClusterID(ctx context.Context) string {
	resolver := cluster.NewResolver(cluster.DefaultConfig())
	defer func() { _ = resolver.Close() }()

	info, err := resolver.Resolve(ctx)
	if err != nil {
		setupLog.Error(err, "cluster-id is required when a publisher is enabled",
			"hint", "Set --cluster-id or CLUSTER_ID when not running on GKE")
		os.Exit(1)
	}
	setupLog.Info("Resolved cluster ID from cloud metadata",
		"clusterID", info.ClusterID,
		"provider", info.Provider)
	return info.ClusterID
}

func setupNotifier(cfg flags, pubs publishers, events chan<- model.TransitionEventPayload, version string) hooks.Notifier {
	if len(pubs.transitions()) == 0 {
		return hooks.NopNotifier{}
	}

	filterConfig := filter.EventFilterConfig{
		Namespaces:        splitAndTrim(cfg.notifyNamespaces),
		ExcludeNamespaces: splitAndTrim(cfg.notifyExcludeNamespaces),
		RequireLabels:     splitAndTrim(cfg.notifyRequireLabels),
		ExcludeLabels:     splitAndTrim(cfg.notifyExcludeLabels),
		Kinds:             splitAndTrim(cfg.notifyKinds),
	}
	setupLog.Info("Transition notifications enabled",
		"namespaces", filterConfig.Namespaces,
		"excludeNamespaces", filterConfig.ExcludeNamespaces,
		"kinds", filterConfig.Kinds,
	)
	return hooks.NewChannelNotifier(events, filter.NewEventFilter(filterConfig), cfg.clusterID, version)
}

func setupRouter(hooksConfig *config.HooksConfig, notifier hooks.Notifier) (*syncapi.Router, error) {
	blueGreen := rollout.NewHandler(notifier)
	ordinalSet := ordinal.NewHandler(notifier)

	router := syncapi.NewRouter()
	for _, route := range hooksConfig.Routes {
		var handler syncapi.Handler
		switch route.Controller {
		case config.ControllerBlueGreen:
			handler = blueGreen
		case config.ControllerOrdinalSet:
			handler = ordinalSet
		}
		if err := router.Register(route.Path, handler); err != nil {
			return nil, err
		}
		setupLog.Info("Registered hook", "path", route.Path, "controller", route.Controller)
	}
	return router, nil
}

func hookRoutes(hooksConfig *config.HooksConfig) []model.HookRoute {
	routes := make([]model.HookRoute, 0, len(hooksConfig.Routes))
	for _, route := range hooksConfig.Routes {
		routes = append(routes, model.HookRoute{Path: route.Path, Controller: string(route.Controller)})
	}
	return routes
}

// splitAndTrim splits a comma-separated string and trims whitespace from each element
func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
