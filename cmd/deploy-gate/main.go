package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dreschagin/session-monitor/internal/deploygate"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

const (
	exitSafe   = 0
	exitError  = 1
	exitUnsafe = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := deploygate.LoadClientConfig(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSafe
		}
		fmt.Fprintf(os.Stderr, "deploy-gate: %v\n", err)
		return exitError
	}

	log := logger.New(os.Getenv("LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := deploygate.NewClient(cfg.BaseURL, nil)

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	result, err := client.WaitUntilSafe(ctx, cfg.MaxActiveSessions, cfg.Requester, cfg.PollInterval)
	if err != nil {
		log.Error("Deploy readiness check failed", err, "url", cfg.BaseURL)
		return exitError
	}

	if result.CanDeploy {
		log.Info("Safe to deploy",
			"active_sessions", result.CurrentActiveSessions,
			"threshold", result.Threshold,
		)
		return exitSafe
	}

	log.Warn("Not safe to deploy",
		"active_sessions", result.CurrentActiveSessions,
		"threshold", result.Threshold,
		"waited", cfg.Timeout.String(),
	)
	return exitUnsafe
}
