package datastore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/patrickmn/go-cache"
)

// MemoryStore はプロセス内メモリを使用したStore実装。
// 開発環境とテストで使用する。値はJSONのバイト列として保持するため、
// 呼び出し側のオブジェクトとメモリを共有しない。
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore はMemoryStoreを生成する。エントリは期限切れにならない。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

// Set はpathにvalueをJSONで保存する。
func (s *MemoryStore) Set(_ context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}
	s.c.Set(path, data, cache.NoExpiration)
	return nil
}

// Get はpathの値をdstにデコードする。見つからない場合はfalseを返す。
func (s *MemoryStore) Get(_ context.Context, path string, dst any) (bool, error) {
	v, ok := s.c.Get(path)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(v.([]byte), dst); err != nil {
		return false, fmt.Errorf("failed to decode value of %s: %w", path, err)
	}
	return true, nil
}

// List はprefix直下の子キーと値を返す。
func (s *MemoryStore) List(_ context.Context, prefix string) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage)
	for key, item := range s.c.Items() {
		name, ok := childName(prefix, key)
		if !ok {
			continue
		}
		result[name] = json.RawMessage(item.Object.([]byte))
	}
	return result, nil
}

// Ping は常に成功する。
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close は全エントリを破棄する。
func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
