// Command steward plays a running hexfront session. It observes state via
// the public API, decides on a plan of steps, and acts via the admin API.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/hexfront/internal/config"
	"github.com/talgya/hexfront/internal/steward"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("HEXFRONT_API_URL", "http://localhost:8080")
	adminKey := os.Getenv(config.AdminKeyEnv)
	intervalSec := envIntOrDefault("STEWARD_INTERVAL", 10)

	if adminKey == "" {
		slog.Error(config.AdminKeyEnv + " is required")
		os.Exit(1)
	}

	interval := time.Duration(intervalSec) * time.Second

	slog.Info("Hexfront steward starting",
		"api_url", apiURL,
		"interval", interval,
	)

	st := steward.New(apiURL, adminKey)

	slog.Info("waiting for hexfront API...")
	waitForAPI(apiURL)

	runCycle(st)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runCycle(st)
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			fmt.Println("Steward stopped.")
			return
		}
	}
}

// runCycle executes one observe, decide, act cycle.
func runCycle(st *steward.Steward) {
	slog.Info("steward cycle starting")
	rec, err := st.Cycle()
	if err != nil {
		slog.Error("cycle failed", "turn", rec.Turn, "error", err)
		return
	}
	slog.Info("steward cycle complete",
		"turn", rec.Turn,
		"steps", len(rec.Steps),
		"failures", rec.Failures,
	)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Exits after 5 minutes if the API never becomes ready.
func waitForAPI(apiURL string) {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("hexfront API is ready")
				return
			}
		}
		if time.Now().After(deadline) {
			slog.Error("hexfront API did not become ready within 5 minutes")
			os.Exit(1)
		}
		slog.Info("hexfront not ready, retrying...", "backoff", backoff)
		time.Sleep(backoff)
		backoff = min(backoff*2, maxBackoff)
	}
}
