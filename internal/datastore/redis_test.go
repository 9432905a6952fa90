package datastore

import (
	"context"
	"os"
	"testing"
)

// setupRedisStore はテスト用のRedisStoreを準備する。
// TEST_REDIS_ADDR のRedisに接続できない場合はスキップする。
func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	s := NewRedisStore(addr, 15)
	if err := s.Ping(context.Background()); err != nil {
		s.Close()
		t.Skipf("テスト用Redisに接続できません（スキップ）: %v", err)
	}
	if err := s.client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("FlushDBに失敗: %v", err)
	}

	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore_SetGetList(t *testing.T) {
	s := setupRedisStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "users/u1/resources/f1", testRecord{ID: "f1", Name: "Docs"})
	_ = s.Set(ctx, "users/u1/resources/f2", testRecord{ID: "f2", Name: "Photos"})
	_ = s.Set(ctx, "users/u2/resources/f3", testRecord{ID: "f3", Name: "Other"})

	var got testRecord
	found, err := s.Get(ctx, "users/u1/resources/f2", &got)
	if err != nil || !found {
		t.Fatalf("Get = (%v, %v)", found, err)
	}
	if got.Name != "Photos" {
		t.Errorf("Name = %q, want %q", got.Name, "Photos")
	}

	entries, err := s.List(ctx, "users/u1/resources")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("len(entries) = %d, want 2", len(entries))
	}

	found, err = s.Get(ctx, "users/nobody/tokens", &got)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected not found")
	}
}
