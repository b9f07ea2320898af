package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rategate/pkg/ratelimit"
)

func TestLoadRoutesConfig(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
		validate    func(*testing.T, *RoutesConfig)
	}{
		{
			name: "valid config",
			configYAML: `routes:
  - name: login
    path: /api/login
    policy:
      limit: 5
      window_seconds: 60
      algorithm: fixed_window
      failure_strategy: fail-closed
  - name: search
    path: /api/search
    policy:
      limit: 20
      window_seconds: 10
      algorithm: token_bucket
`,
			validate: func(t *testing.T, config *RoutesConfig) {
				if len(config.Routes) != 2 {
					t.Fatalf("expected 2 routes, got %d", len(config.Routes))
				}
				login := config.Routes[0]
				if login.Name != "login" || login.Path != "/api/login" {
					t.Errorf("unexpected route %+v", login)
				}
				want := ratelimit.Policy{Limit: 5, WindowSeconds: 60, Algorithm: ratelimit.AlgorithmFixedWindow, FailureStrategy: ratelimit.FailClosed}
				if login.Policy != want {
					t.Errorf("login policy = %+v, want %+v", login.Policy, want)
				}
				if got := config.Routes[1].Policy.Strategy(); got != ratelimit.FailOpen {
					t.Errorf("search strategy = %v, want fail-open default", got)
				}
			},
		},
		{
			name: "unknown algorithm",
			configYAML: `routes:
  - name: a
    path: /a
    policy: {limit: 1, window_seconds: 1, algorithm: gcra}
`,
			expectError: true,
			errorMsg:    "unsupported rate limit algorithm",
		},
		{
			name: "duplicate path",
			configYAML: `routes:
  - name: a
    path: /a
    policy: {limit: 1, window_seconds: 1, algorithm: fixed_window}
  - name: b
    path: /a
    policy: {limit: 1, window_seconds: 1, algorithm: fixed_window}
`,
			expectError: true,
			errorMsg:    "duplicate path",
		},
		{
			name:        "empty table",
			configYAML:  "routes: []\n",
			expectError: true,
			errorMsg:    "at least one route",
		},
		{
			name:        "malformed yaml",
			configYAML:  "routes: [",
			expectError: true,
			errorMsg:    "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(tt.configYAML), 0o600); err != nil {
				t.Fatal(err)
			}

			config, err := LoadRoutesConfig(path)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validate(t, config)
		})
	}
}

func TestLoadRoutesConfig_MissingFile(t *testing.T) {
	_, err := LoadRoutesConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestRoutesConfig_Validate(t *testing.T) {
	valid := ratelimit.Policy{Limit: 1, WindowSeconds: 1, Algorithm: ratelimit.AlgorithmFixedWindow}

	tests := []struct {
		name    string
		routes  []RouteConfig
		wantErr error
		wantMsg string
	}{
		{"missing name", []RouteConfig{{Path: "/a", Policy: valid}}, nil, "name is required"},
		{"colon in name", []RouteConfig{{Name: "a:b", Path: "/a", Policy: valid}}, nil, "must not contain"},
		{"relative path", []RouteConfig{{Name: "a", Path: "a", Policy: valid}}, nil, "must start with"},
		{"duplicate name", []RouteConfig{{Name: "a", Path: "/a", Policy: valid}, {Name: "a", Path: "/b", Policy: valid}}, nil, "duplicate name"},
		{"invalid policy", []RouteConfig{{Name: "a", Path: "/a", Policy: ratelimit.Policy{Limit: 0, WindowSeconds: 1, Algorithm: ratelimit.AlgorithmFixedWindow}}}, ratelimit.ErrInvalidPolicy, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&RoutesConfig{Routes: tt.routes}).Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestDefaultRoutes(t *testing.T) {
	config := DefaultRoutes()
	if err := config.Validate(); err != nil {
		t.Fatalf("DefaultRoutes() is invalid: %v", err)
	}

	seen := make(map[ratelimit.Algorithm]bool)
	for _, route := range config.Routes {
		seen[route.Policy.Algorithm] = true
	}
	for _, tag := range ratelimit.Algorithms {
		if !seen[tag] {
			t.Errorf("no default route uses %s", tag)
		}
	}

	test := config.Routes[0]
	if test.Path != "/api/test" || test.Policy.Limit != 5 || test.Policy.WindowSeconds != 10 {
		t.Errorf("unexpected /api/test route: %+v", test)
	}
}
