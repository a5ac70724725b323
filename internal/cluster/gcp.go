package cluster

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"resty.dev/v3"
)

const (
	gcpMetadataBase   = "http://metadata.google.internal/computeMetadata/v1"
	gcpMetadataFlavor = "Google"
)

// GCPProvider reads the GKE cluster identity from the instance metadata server.
type GCPProvider struct {
	client *resty.Client
}

// NewGCPProvider creates a provider querying the metadata server at baseURL.
func NewGCPProvider(baseURL string, timeout time.Duration) *GCPProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Metadata-Flavor", gcpMetadataFlavor)

	return &GCPProvider{client: client}
}

func (p *GCPProvider) Name() CloudProvider {
	return ProviderGCP
}

// Detect checks that the metadata server answers and identifies itself as Google's.
func (p *GCPProvider) Detect(ctx context.Context) bool {
	resp, err := p.client.R().SetContext(ctx).Get("/")
	if err != nil {
		return false
	}
	return resp.IsSuccess() && resp.Header().Get("Metadata-Flavor") == gcpMetadataFlavor
}

// Resolve builds the cluster ID as gcp/<project-id>/<region>/<cluster-name>.
func (p *GCPProvider) Resolve(ctx context.Context) (*ClusterInfo, error) {
	clusterName, err := p.getMetadata(ctx, "/instance/attributes/cluster-name")
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster-name: %w", err)
	}
	projectID, err := p.getMetadata(ctx, "/project/project-id")
	if err != nil {
		return nil, fmt.Errorf("failed to get project-id: %w", err)
	}
	// projects/<project-number>/zones/<zone>
	zone, err := p.getMetadata(ctx, "/instance/zone")
	if err != nil {
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	region := extractRegionFromZone(path.Base(zone))

	return &ClusterInfo{
		ClusterID:   fmt.Sprintf("gcp/%s/%s/%s", projectID, region, clusterName),
		ClusterName: clusterName,
		Provider:    ProviderGCP,
		Region:      region,
		ProjectID:   projectID,
	}, nil
}

// Close releases the underlying HTTP client.
func (p *GCPProvider) Close() error {
	return p.client.Close()
}

func (p *GCPProvider) getMetadata(ctx context.Context, key string) (string, error) {
	resp, err := p.client.R().SetContext(ctx).Get(key)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("metadata request failed with status %d", resp.StatusCode())
	}
	value := strings.TrimSpace(resp.String())
	if value == "" {
		return "", fmt.Errorf("metadata key %s is empty", key)
	}
	return value, nil
}

// extractRegionFromZone strips the zone suffix, e.g. us-central1-a -> us-central1
func extractRegionFromZone(zone string) string {
	lastDash := strings.LastIndex(zone, "-")
	if lastDash == -1 {
		return zone
	}
	return zone[:lastDash]
}
