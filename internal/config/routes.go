// Package config loads the table that binds hook URL paths to controllers.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// Controller selects the decision logic behind a route.
type Controller string

const (
	ControllerBlueGreen  Controller = "bluegreen"
	ControllerOrdinalSet Controller = "ordinalset"
)

// Route binds one URL path to a controller.
type Route struct {
	Path       string     `json:"path"`
	Controller Controller `json:"controller"`
}

// HooksConfig is the content of the --hooks-config file.
//
//	routes:
//	- path: /sync/bluegreen
//	  controller: bluegreen
type HooksConfig struct {
	Routes []Route `json:"routes"`
}

// reservedPaths are served by the process itself.
var reservedPaths = []string{"/metrics", "/healthz", "/readyz"}

// Default returns the routes used when no file is given.
func Default() *HooksConfig {
	return &HooksConfig{Routes: []Route{
		{Path: "/sync/bluegreen", Controller: ControllerBlueGreen},
		{Path: "/sync/ordinalset", Controller: ControllerOrdinalSet},
		{Path: "/finalize/ordinalset", Controller: ControllerOrdinalSet},
	}}
}

// Load reads and validates a routes file. An empty path yields Default.
func Load(path string) (*HooksConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("hooks config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML or JSON route configuration. Unknown fields are rejected.
func Parse(data []byte) (*HooksConfig, error) {
	cfg := &HooksConfig{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid route.
func (c *HooksConfig) Validate() error {
	if len(c.Routes) == 0 {
		return errors.New("at least one route is required")
	}

	var errs []error
	seen := make(map[string]bool, len(c.Routes))
	for i, route := range c.Routes {
		switch {
		case !strings.HasPrefix(route.Path, "/"):
			errs = append(errs, fmt.Errorf("routes[%d]: path %q must start with /", i, route.Path))
		case isReserved(route.Path):
			errs = append(errs, fmt.Errorf("routes[%d]: path %q is reserved", i, route.Path))
		case seen[route.Path]:
			errs = append(errs, fmt.Errorf("routes[%d]: duplicate path %q", i, route.Path))
		}
		seen[route.Path] = true

		switch route.Controller {
		case ControllerBlueGreen, ControllerOrdinalSet:
		default:
			errs = append(errs, fmt.Errorf("routes[%d]: unknown controller %q", i, route.Controller))
		}
	}
	return errors.Join(errs...)
}

func isReserved(path string) bool {
	for _, reserved := range reservedPaths {
		if path == reserved || strings.HasPrefix(path, reserved+"/") {
			return true
		}
	}
	return false
}
