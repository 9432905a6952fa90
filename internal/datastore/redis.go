package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix は全キーに付与する名前空間。
const redisKeyPrefix = "drivegate:"

// RedisStore はRedisを使用したStore実装。
// パスをそのままキーとし、値はJSON文字列で保存する。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(addr string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// NewRedisStoreWithClient は既存のクライアントからRedisStoreを生成する。
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Set はpathにvalueをJSONで保存する。有効期限は設定しない。
func (s *RedisStore) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+path, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// Get はpathの値をdstにデコードする。見つからない場合はfalseを返す。
func (s *RedisStore) Get(ctx context.Context, path string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode value of %s: %w", path, err)
	}
	return true, nil
}

// List はSCANでprefix直下のキーを列挙し、値をまとめて取得する。
func (s *RedisStore) List(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	p := strings.TrimSuffix(prefix, "/") + "/"
	pattern := redisKeyPrefix + escapeGlob(p) + "*"

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, ok := childName(p, strings.TrimPrefix(key, redisKeyPrefix)); ok {
			keys = append(keys, key)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", prefix, err)
	}

	result := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries under %s: %w", prefix, err)
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// SCANとMGETの間に削除されたキー
			continue
		}
		name, _ := childName(p, strings.TrimPrefix(keys[i], redisKeyPrefix))
		result[name] = json.RawMessage(str)
	}
	return result, nil
}

// Ping はRedisへの疎通を確認する。
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close はRedisクライアントを閉じる。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// escapeGlob はSCANのMATCHパターンで特別な意味を持つ文字をエスケープする。
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// compile-time interface check
var _ Store = (*RedisStore)(nil)
