package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/marketplace/internal/health"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

func TestStartMetricsServer_Endpoints(t *testing.T) {
	logger := log.WithField("test", "http")

	port := findFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	srv := startMetricsServer(ctx, addr, logger, healthHandler)
	if srv == nil {
		t.Fatal("startMetricsServer returned nil")
	}

	// Даём время на запуск
	time.Sleep(100 * time.Millisecond)

	for _, path := range []string{"/metrics", "/healthz", "/readyz", "/livez"} {
		resp, err := http.Get(fmt.Sprintf("http://%s%s", addr, path))
		if err != nil {
			t.Fatalf("failed to get %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200 for %s, got %d", path, resp.StatusCode)
		}
		if len(body) == 0 {
			t.Errorf("%s should return non-empty response", path)
		}
		if path == "/livez" && string(body) != "ok" {
			t.Errorf("expected 'ok' from /livez, got %q", string(body))
		}
	}
}

func TestStartMetricsServer_Shutdown(t *testing.T) {
	logger := log.WithField("test", "http-shutdown")

	port := findFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	startMetricsServer(ctx, addr, logger, healthHandler)
	time.Sleep(100 * time.Millisecond)

	url := fmt.Sprintf("http://%s/livez", addr)
	if _, err := http.Get(url); err != nil {
		t.Fatalf("server should be up before shutdown: %v", err)
	}

	cancel()
	time.Sleep(200 * time.Millisecond)

	if _, err := http.Get(url); err == nil {
		t.Error("expected request to fail after shutdown")
	}
}

func TestShutdownHTTP_NilServer(t *testing.T) {
	// Не должно паниковать
	shutdownHTTP(nil, log.WithField("test", "http"))
}

func findFreePort(t *testing.T) int {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer lis.Close()

	return lis.Addr().(*net.TCPAddr).Port
}
