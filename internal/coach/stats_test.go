package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/eleven-am/presence-coach/internal/shared"
	"github.com/redis/go-redis/v9"
)

type staticFetcher struct {
	payload json.RawMessage
	err     error
	calls   int
}

func (f *staticFetcher) Stats(_ context.Context) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func newTestStatsStore(t *testing.T, fetcher StatsFetcher) (*RedisStatsStore, *miniredis.Miniredis, *clock.Mock) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = redisClient.Close() })

	clk := clock.NewMock()
	clk.Set(time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC))

	return NewRedisStatsStore(redisClient, fetcher, 0, clk), mr, clk
}

func TestNewRedisStatsStore_Defaults(t *testing.T) {
	store := NewRedisStatsStore(nil, nil, 0, nil)
	if store.ttl != DefaultStatsTTL {
		t.Errorf("expected ttl %s, got %s", DefaultStatsTTL, store.ttl)
	}
	if store.keep != defaultStatsKeep {
		t.Errorf("expected keep %d, got %d", defaultStatsKeep, store.keep)
	}
	if store.clock == nil {
		t.Error("clock should not be nil")
	}
}

func TestRedisStatsStore_Publish(t *testing.T) {
	fetcher := &staticFetcher{payload: json.RawMessage(`{"total_analyses":12}`)}
	store, mr, clk := newTestStatsStore(t, fetcher)
	ctx := context.Background()

	if err := store.Publish(ctx, "ses_1"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("expected 1 fetch, got %d", fetcher.calls)
	}

	snap, err := store.Latest(ctx, "ses_1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if string(snap.Payload) != `{"total_analyses":12}` {
		t.Errorf("unexpected payload %s", snap.Payload)
	}
	if !snap.RefreshedAt.Equal(clk.Now()) {
		t.Errorf("expected refreshed at %v, got %v", clk.Now(), snap.RefreshedAt)
	}

	ttl := mr.TTL(statsKey("ses_1"))
	if ttl != DefaultStatsTTL {
		t.Errorf("expected ttl %s, got %s", DefaultStatsTTL, ttl)
	}
}

func TestRedisStatsStore_Publish_FetchError(t *testing.T) {
	fetcher := &staticFetcher{err: errors.New("detector down")}
	store, mr, _ := newTestStatsStore(t, fetcher)

	if err := store.Publish(context.Background(), "ses_1"); err == nil {
		t.Fatal("expected error when fetch fails")
	}
	if mr.Exists(statsKey("ses_1")) {
		t.Error("nothing should be cached after a failed fetch")
	}
}

func TestRedisStatsStore_Latest_NotFound(t *testing.T) {
	store, _, _ := newTestStatsStore(t, nil)

	_, err := store.Latest(context.Background(), "ses_missing")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStatsStore_Recent_KeepsNewest(t *testing.T) {
	store, _, clk := newTestStatsStore(t, nil)
	ctx := context.Background()

	for i := 0; i < defaultStatsKeep+4; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))
		if err := store.Put(ctx, "ses_1", payload); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
		clk.Add(time.Second)
	}

	snaps, err := store.Recent(ctx, "ses_1", 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(snaps) != defaultStatsKeep {
		t.Fatalf("expected %d snapshots, got %d", defaultStatsKeep, len(snaps))
	}

	newest := fmt.Sprintf(`{"n":%d}`, defaultStatsKeep+3)
	if string(snaps[0].Payload) != newest {
		t.Errorf("expected newest %s first, got %s", newest, snaps[0].Payload)
	}
	if !snaps[0].RefreshedAt.After(snaps[1].RefreshedAt) {
		t.Error("snapshots should be ordered newest first")
	}

	limited, err := store.Recent(ctx, "ses_1", 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(limited) != 3 {
		t.Errorf("expected 3 snapshots, got %d", len(limited))
	}
}

func TestRedisStatsStore_Put_IdenticalPayloadsKeptApart(t *testing.T) {
	store, _, clk := newTestStatsStore(t, nil)
	ctx := context.Background()

	payload := json.RawMessage(`{"total_analyses":5}`)
	for i := 0; i < 2; i++ {
		if err := store.Put(ctx, "ses_1", payload); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
		clk.Add(time.Second)
	}

	snaps, err := store.Recent(ctx, "ses_1", 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	for i, snap := range snaps {
		if string(snap.Payload) != string(payload) {
			t.Errorf("snapshot %d: unexpected payload %s", i, snap.Payload)
		}
	}
	if !snaps[0].RefreshedAt.After(snaps[1].RefreshedAt) {
		t.Error("snapshots should be ordered newest first")
	}
}

func TestRedisStatsStore_SessionsIsolated(t *testing.T) {
	store, _, _ := newTestStatsStore(t, nil)
	ctx := context.Background()

	if err := store.Put(ctx, "ses_1", json.RawMessage(`{"a":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := store.Latest(ctx, "ses_2"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other session, got %v", err)
	}
}

func TestRedisStatsStore_Forget(t *testing.T) {
	store, mr, _ := newTestStatsStore(t, nil)
	ctx := context.Background()

	if err := store.Put(ctx, "ses_1", json.RawMessage(`{"a":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Forget(ctx, "ses_1"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if mr.Exists(statsKey("ses_1")) {
		t.Error("stats key should be deleted")
	}
	if err := store.Forget(ctx, "ses_1"); err != nil {
		t.Errorf("Forget on a missing key should not error: %v", err)
	}
}

func TestRedisStatsStore_Expires(t *testing.T) {
	store, mr, _ := newTestStatsStore(t, nil)
	ctx := context.Background()

	if err := store.Put(ctx, "ses_1", json.RawMessage(`{"a":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	mr.FastForward(DefaultStatsTTL + time.Second)

	if _, err := store.Latest(ctx, "ses_1"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected expired stats to be gone, got %v", err)
	}
}
