package s3

import (
	"testing"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		key  string
		want string
	}{
		{
			name: "aws virtual hosted",
			cfg:  Config{Bucket: "exports", Region: "eu-west-1", URLMode: URLModePublic},
			key:  "session-history/2024/05/01/20240501T120000Z_session_history.json",
			want: "https://exports.s3.eu-west-1.amazonaws.com/session-history/2024/05/01/20240501T120000Z_session_history.json",
		},
		{
			name: "custom endpoint path style",
			cfg:  Config{Bucket: "exports", Endpoint: "http://localhost:9000/", UsePathStyle: true, URLMode: URLModePublic},
			key:  "a b/c.json",
			want: "http://localhost:9000/exports/a%20b/c.json",
		},
		{
			name: "custom endpoint virtual hosted",
			cfg:  Config{Bucket: "exports", Endpoint: "https://storage.example.net", URLMode: URLModePublic},
			key:  "x.json",
			want: "https://exports.storage.example.net/x.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := normalizeConfig(&cfg); err != nil {
				t.Fatalf("normalizeConfig() error = %v", err)
			}
			got := newHistoryStorage(nil, cfg).publicURL(tt.key)
			if got != tt.want {
				t.Fatalf("publicURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		expectErr bool
	}{
		{name: "defaults", cfg: Config{Bucket: "b"}},
		{name: "missing bucket", cfg: Config{Bucket: " "}, expectErr: true},
		{name: "half static credentials", cfg: Config{Bucket: "b", AccessKeyID: "id"}, expectErr: true},
		{name: "unknown url mode", cfg: Config{Bucket: "b", URLMode: "signed"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := normalizeConfig(&cfg)
			if tt.expectErr != (err != nil) {
				t.Fatalf("expectErr=%v, got %v", tt.expectErr, err)
			}
			if err == nil && (cfg.URLMode != URLModePresigned || cfg.Region != "us-east-1" || cfg.PresignedTTL <= 0) {
				t.Fatalf("defaults not applied: %+v", cfg)
			}
		})
	}
}
