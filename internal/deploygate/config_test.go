package deploygate

import (
	"io"
	"testing"
	"time"
)

func TestLoadClientConfigDefaults(t *testing.T) {
	cfg, err := LoadClientConfig(nil, io.Discard)
	if err != nil {
		t.Fatalf("LoadClientConfig() error = %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" || cfg.MaxActiveSessions != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Timeout != 0 || cfg.PollInterval != 5*time.Second || cfg.Requester == "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadClientConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("DEPLOY_GATE_URL", "http://env:9000")
	t.Setenv("DEPLOY_GATE_MAX_ACTIVE_SESSIONS", "4")

	cfg, err := LoadClientConfig([]string{"-url", "http://flag:8080", "-timeout", "2m", "-requester", "ci"}, io.Discard)
	if err != nil {
		t.Fatalf("LoadClientConfig() error = %v", err)
	}
	if cfg.BaseURL != "http://flag:8080" || cfg.MaxActiveSessions != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Timeout != 2*time.Minute || cfg.Requester != "ci" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadClientConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "negative threshold", args: []string{"-max-active", "-1"}},
		{name: "negative timeout", args: []string{"-timeout", "-1s"}},
		{name: "fast poll", args: []string{"-poll", "100ms"}},
		{name: "empty url", args: []string{"-url", ""}},
		{name: "unknown flag", args: []string{"-force"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadClientConfig(tt.args, io.Discard); err == nil {
				t.Fatalf("expected error for %v", tt.args)
			}
		})
	}
}
