// Command healthcheck checks a local sitepanel server for container health
// checks. It exits 0 when the server reports "ok" or "degraded".
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	defaultAddr  = "127.0.0.1:8080"
	checkTimeout = 3 * time.Second
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if err := checkServer(ctx, healthURL(os.Getenv("SITEPANEL_LISTEN_ADDR"))); err != nil {
		fmt.Fprintln(os.Stderr, "unhealthy:", err)
		os.Exit(1)
	}
}

// checkServer fails on transport errors, non-200 answers and a "down" report.
// A degraded server (Drive unreachable) still passes.
func checkServer(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	var report struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("decode health report: %w", err)
	}
	if report.Status == "down" {
		return errors.New("server reports down")
	}
	return nil
}

// healthURL points at the loopback interface when the server binds to every
// interface.
func healthURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + defaultAddr + "/api/v1/health"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/api/v1/health"
}
