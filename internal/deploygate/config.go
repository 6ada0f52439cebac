package deploygate

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// ClientConfig - настройки CLI deploy-gate. Флаги имеют приоритет над окружением.
type ClientConfig struct {
	BaseURL           string
	MaxActiveSessions int
	Timeout           time.Duration
	PollInterval      time.Duration
	Requester         string
}

func LoadClientConfig(args []string, output io.Writer) (ClientConfig, error) {
	maxActive, err := strconv.Atoi(getEnv("DEPLOY_GATE_MAX_ACTIVE_SESSIONS", "0"))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("invalid DEPLOY_GATE_MAX_ACTIVE_SESSIONS: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("DEPLOY_GATE_TIMEOUT", "0s"))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("invalid DEPLOY_GATE_TIMEOUT: %w", err)
	}

	poll, err := time.ParseDuration(getEnv("DEPLOY_GATE_POLL_INTERVAL", "5s"))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("invalid DEPLOY_GATE_POLL_INTERVAL: %w", err)
	}

	cfg := ClientConfig{}

	fs := flag.NewFlagSet("deploy-gate", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.BaseURL, "url", getEnv("DEPLOY_GATE_URL", "http://localhost:8080"), "session monitor base URL")
	fs.IntVar(&cfg.MaxActiveSessions, "max-active", maxActive, "maximum active sessions that still allow a deploy")
	fs.DurationVar(&cfg.Timeout, "timeout", timeout, "how long to wait for a safe state; 0 checks once")
	fs.DurationVar(&cfg.PollInterval, "poll", poll, "interval between checks while waiting")
	fs.StringVar(&cfg.Requester, "requester", getEnv("DEPLOY_GATE_REQUESTER", defaultRequester()), "name recorded in the deploy audit")

	if err := fs.Parse(args); err != nil {
		return ClientConfig{}, err
	}

	if cfg.BaseURL == "" {
		return ClientConfig{}, errors.New("url must not be empty")
	}
	if cfg.MaxActiveSessions < 0 {
		return ClientConfig{}, fmt.Errorf("max-active must be >= 0, got %d", cfg.MaxActiveSessions)
	}
	if cfg.Timeout < 0 {
		return ClientConfig{}, errors.New("timeout must be >= 0")
	}
	if cfg.PollInterval < time.Second {
		return ClientConfig{}, errors.New("poll must be >= 1s")
	}

	return cfg, nil
}

func defaultRequester() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "deploy-gate-cli"
	}
	return "deploy-gate-cli@" + host
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
