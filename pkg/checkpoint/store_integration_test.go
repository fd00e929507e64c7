//go:build integration

package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/group-roster-client/internal/testutil"
	"github.com/Sternrassler/group-roster-client/pkg/client"
	"github.com/Sternrassler/group-roster-client/pkg/roster"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		redisContainer.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newCollector(t *testing.T, baseURL string, store *Store) *roster.Collector {
	t.Helper()

	cfg := client.DefaultConfig("group-roster-integration/1.0")
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	rc := roster.DefaultConfig()
	rc.PageDelay = 0
	rc.Retry.Delay = 10 * time.Millisecond
	rc.Retry.MaxAttempts = 2
	rc.CheckpointEvery = 1

	collector, err := roster.New(c, rc, roster.WithCheckpoints(store), roster.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}
	return collector
}

func TestStore_Integration_RoundTrip(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := NewStore(redisClient, time.Minute)
	ctx := context.Background()

	snap := roster.Snapshot{Cursor: "next", Members: []roster.Member{{UserID: 1, Username: "a"}}}
	if err := store.Save(ctx, "1", snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "1")
	if err != nil || got == nil {
		t.Fatalf("Load() = (%v, %v)", got, err)
	}
	if got.Cursor != "next" || len(got.Members) != 1 || got.SavedAt.IsZero() {
		t.Errorf("Load() = %+v", got)
	}

	if err := store.Delete(ctx, "1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := store.Load(ctx, "1"); got != nil {
		t.Errorf("Load() after Delete = %+v, want nil", got)
	}
}

// TestStore_Integration_ResumeAfterFailure runs a collection that fails mid-way,
// then a second run that resumes from the stored cursor.
func TestStore_Integration_ResumeAfterFailure(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := NewStore(redisClient, time.Minute)
	ctx := context.Background()

	mock := testutil.NewMockGroups(
		testutil.NewPageResponse([]int64{3, 1}, "page2"),
		testutil.NewServerErrorResponse("maintenance"),
	)
	defer mock.Close()

	partial, err := newCollector(t, mock.URL(), store).Collect(ctx, "77", nil)
	if err == nil {
		t.Fatal("Expected first run to fail")
	}
	if len(partial) != 2 {
		t.Errorf("partial members = %d, want 2", len(partial))
	}

	snap, err := store.Load(ctx, "77")
	if err != nil || snap == nil {
		t.Fatalf("Expected checkpoint after failure, got (%v, %v)", snap, err)
	}
	if snap.Cursor != "page2" {
		t.Errorf("checkpoint cursor = %q, want page2", snap.Cursor)
	}

	resumed := testutil.NewMockGroups(
		testutil.NewPageResponse([]int64{1, 2}, ""),
	)
	defer resumed.Close()

	members, err := newCollector(t, resumed.URL(), store).Collect(ctx, "77", nil)
	if err != nil {
		t.Fatalf("Resumed run error = %v", err)
	}

	if cursors := resumed.GetCursors(); len(cursors) != 1 || cursors[0] != "page2" {
		t.Errorf("resumed cursors = %q, want [page2]", cursors)
	}

	want := []int64{1, 2, 3}
	if len(members) != len(want) {
		t.Fatalf("members = %+v, want ids %v", members, want)
	}
	for i, id := range want {
		if members[i].UserID != id {
			t.Errorf("member[%d] = %d, want %d", i, members[i].UserID, id)
		}
	}

	if snap, _ := store.Load(ctx, "77"); snap != nil {
		t.Error("checkpoint should be removed after a completed run")
	}
}
