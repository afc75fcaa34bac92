package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rhuss/usergate/pkg/ratelimit"
)

// setupRedis starts a Redis container and returns a connected client.
// Tests are skipped if no container runtime is available.
func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping Redis integration tests")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping: could not start Redis container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("getting endpoint: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return client
}

func TestStats_Record(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	prefix := fmt.Sprintf("test:%d", time.Now().UnixNano())
	s := NewStats(client, WithPrefix(prefix+":"), WithTrackClients(true), WithTTL(time.Minute))

	at := time.Date(2026, 3, 1, 12, 30, 15, 0, time.UTC)
	events := []ratelimit.Event{
		{Client: "198.51.100.1", Outcome: ratelimit.Allowed, Method: "POST", Path: "/api/auth/login", At: at},
		{Client: "198.51.100.1", Outcome: ratelimit.RateLimited, Method: "POST", Path: "/api/auth/login", At: at},
		{Client: "198.51.100.1", Outcome: ratelimit.Blocked, Method: "POST", Path: "/api/auth/login", At: at},
	}
	for _, ev := range events {
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	totals, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	for _, outcome := range []string{"allowed", "rate_limited", "blocked"} {
		if totals[outcome] != 1 {
			t.Errorf("totals[%s] = %d, want 1", outcome, totals[outcome])
		}
	}

	minute, err := s.Minute(ctx, at)
	if err != nil || minute["allowed"] != 1 {
		t.Errorf("Minute = %v, %v", minute, err)
	}

	perClient, err := s.Client(ctx, "198.51.100.1")
	if err != nil || perClient["blocked"] != 1 {
		t.Errorf("Client = %v, %v", perClient, err)
	}

	ttl, err := client.TTL(ctx, prefix+":minute:202603011230").Result()
	if err != nil || ttl <= 0 {
		t.Errorf("minute bucket TTL = %v, %v; want positive", ttl, err)
	}

	route, err := client.HGet(ctx, prefix+":route", "POST /api/auth/login:blocked").Int64()
	if err != nil || route != 1 {
		t.Errorf("route counter = %d, %v", route, err)
	}
}

func TestStats_NilIsNoop(t *testing.T) {
	var s *Stats
	if err := s.Record(context.Background(), ratelimit.Event{}); err != nil {
		t.Errorf("nil Stats Record = %v, want nil", err)
	}
}

func TestStats_KeyLayout(t *testing.T) {
	s := NewStats(nil, WithPrefix("::custom::"))
	if got := s.key("client", "a"); got != "custom:client:a" {
		t.Errorf("key = %q", got)
	}
	if got := NewStats(nil, WithPrefix("")).key("total"); got != DefaultPrefix+":total" {
		t.Errorf("default key = %q", got)
	}
}

func TestStats_ErrorSurfaces(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	s := NewStats(client)
	if err := s.Record(context.Background(), ratelimit.Event{Outcome: ratelimit.Allowed}); err == nil {
		t.Error("expected error from unreachable Redis")
	}
}
