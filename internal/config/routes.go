package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"rategate/pkg/ratelimit"
)

// RoutesConfig is the route policy table read from YAML.
//
//	routes:
//	  - name: test
//	    path: /api/test
//	    policy:
//	      limit: 5
//	      window_seconds: 10
//	      algorithm: sliding_window
//	      failure_strategy: fail-open
type RoutesConfig struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig attaches a rate limit policy to one HTTP path.
type RouteConfig struct {
	// Name scopes the quota: clients get one quota per route name.
	Name string `yaml:"name"`

	// Path is the exact path pattern registered on the mux.
	Path string `yaml:"path"`

	Policy ratelimit.Policy `yaml:"policy"`
}

// DefaultRoutes returns the built-in route table used when no policy file is
// configured. It exposes one demo route per algorithm.
func DefaultRoutes() *RoutesConfig {
	return &RoutesConfig{
		Routes: []RouteConfig{
			{
				Name: "test",
				Path: "/api/test",
				Policy: ratelimit.Policy{
					Limit:           5,
					WindowSeconds:   10,
					Algorithm:       ratelimit.AlgorithmSlidingWindow,
					FailureStrategy: ratelimit.FailOpen,
				},
			},
			{
				Name: "strict",
				Path: "/api/strict",
				Policy: ratelimit.Policy{
					Limit:           3,
					WindowSeconds:   60,
					Algorithm:       ratelimit.AlgorithmFixedWindow,
					FailureStrategy: ratelimit.FailClosed,
				},
			},
			{
				Name: "burst",
				Path: "/api/burst",
				Policy: ratelimit.Policy{
					Limit:           10,
					WindowSeconds:   60,
					Algorithm:       ratelimit.AlgorithmTokenBucket,
					FailureStrategy: ratelimit.LocalFallback,
				},
			},
			{
				Name: "steady",
				Path: "/api/steady",
				Policy: ratelimit.Policy{
					Limit:           5,
					WindowSeconds:   5,
					Algorithm:       ratelimit.AlgorithmLeakyBucket,
					FailureStrategy: ratelimit.LocalFallback,
				},
			},
		},
	}
}

// LoadRoutesConfig loads the route policy table from a YAML file.
// The path parameter is expected to come from a trusted source (environment or hardcoded default).
func LoadRoutesConfig(path string) (*RoutesConfig, error) {
	// #nosec G304 -- path is provided by trusted source (environment), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}

	var config RoutesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse routes file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("routes validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks route names, paths and policies.
func (c *RoutesConfig) Validate() error {
	if len(c.Routes) == 0 {
		return fmt.Errorf("at least one route is required")
	}

	names := make(map[string]bool, len(c.Routes))
	paths := make(map[string]bool, len(c.Routes))
	for i, route := range c.Routes {
		if route.Name == "" {
			return fmt.Errorf("routes[%d]: name is required", i)
		}
		if strings.Contains(route.Name, ":") {
			return fmt.Errorf("routes[%d]: name %q must not contain ':'", i, route.Name)
		}
		if !strings.HasPrefix(route.Path, "/") {
			return fmt.Errorf("routes[%d]: path %q must start with '/'", i, route.Path)
		}
		if names[route.Name] {
			return fmt.Errorf("routes[%d]: duplicate name %q", i, route.Name)
		}
		if paths[route.Path] {
			return fmt.Errorf("routes[%d]: duplicate path %q", i, route.Path)
		}
		if err := route.Policy.Validate(); err != nil {
			return fmt.Errorf("routes[%d] (%s): %w", i, route.Name, err)
		}
		names[route.Name] = true
		paths[route.Path] = true
	}

	return nil
}
