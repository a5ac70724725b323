// Package cluster resolves the identifier stamped on published transition events when
// none is configured explicitly.
package cluster

import (
	"context"
	"errors"
	"io"
	"time"
)

// CloudProvider represents the detected cloud provider
type CloudProvider string

const (
	ProviderUnknown CloudProvider = "unknown"
	ProviderGCP     CloudProvider = "gcp"
)

// ClusterInfo contains resolved cluster identification information
type ClusterInfo struct {
	ClusterID   string
	ClusterName string
	Provider    CloudProvider
	Region      string
	ProjectID   string
}

// ErrNoProviderDetected is returned when no cloud provider can be detected
var ErrNoProviderDetected = errors.New("no cloud provider detected")

// Provider resolves cluster identity from one cloud's metadata service.
type Provider interface {
	Name() CloudProvider
	// Detect reports whether the process runs on this provider.
	Detect(ctx context.Context) bool
	Resolve(ctx context.Context) (*ClusterInfo, error)
}

// Config holds configuration for the resolver
type Config struct {
	// Timeout bounds each metadata request
	Timeout time.Duration
	// EnableGCP enables GCP/GKE detection
	EnableGCP bool
}

// DefaultConfig returns the default resolver configuration
func DefaultConfig() Config {
	return Config{
		Timeout:   3 * time.Second,
		EnableGCP: true,
	}
}

// Resolver tries each provider in order and uses the first one detected.
type Resolver struct {
	providers []Provider
}

// NewResolver builds a resolver with the providers enabled in cfg.
func NewResolver(cfg Config) *Resolver {
	var providers []Provider
	if cfg.EnableGCP {
		providers = append(providers, NewGCPProvider(gcpMetadataBase, cfg.Timeout))
	}
	return NewResolverWithProviders(providers...)
}

// NewResolverWithProviders builds a resolver over explicit providers.
func NewResolverWithProviders(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

// Resolve detects the cloud provider and resolves the cluster identity.
func (r *Resolver) Resolve(ctx context.Context) (*ClusterInfo, error) {
	for _, provider := range r.providers {
		if provider.Detect(ctx) {
			return provider.Resolve(ctx)
		}
	}
	return nil, ErrNoProviderDetected
}

// DetectProvider returns the detected cloud provider without resolving cluster ID
func (r *Resolver) DetectProvider(ctx context.Context) CloudProvider {
	for _, provider := range r.providers {
		if provider.Detect(ctx) {
			return provider.Name()
		}
	}
	return ProviderUnknown
}

// Close releases provider clients.
func (r *Resolver) Close() error {
	var errs []error
	for _, provider := range r.providers {
		if closer, ok := provider.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}
