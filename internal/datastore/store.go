// Package datastore は階層キーで値を読み書きするセカンダリデータストアを提供する。
//
// キーは "users/{UserId}/tokens" のような "/" 区切りのパスで表す。
// 値はJSONとして保存され、同一パスへの書き込みは常に上書き（upsert）となる。
// 実装はPostgreSQL、Redis、インメモリの3種類を提供する。
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidPath はパスセグメントがキーとして使用できない形式であることを表す。
var ErrInvalidPath = errors.New("invalid datastore path")

// Store はセカンダリデータストアの読み書きインターフェース。
type Store interface {
	// Set はpathにvalueをJSONで保存する。既存の値は上書きされる。
	Set(ctx context.Context, path string, value any) error

	// Get はpathの値をdstにデコードする。値が存在しない場合はfalseを返す。
	Get(ctx context.Context, path string, dst any) (bool, error)

	// List はprefix直下の子キーと値を返す。キーはprefixからの相対名。
	// 孫以下のキーは含まない。子が存在しない場合は空のmapを返す。
	List(ctx context.Context, prefix string) (map[string]json.RawMessage, error)

	// Ping はデータストアへの疎通を確認する。
	Ping(ctx context.Context) error

	// Close はデータストアへの接続を閉じる。
	Close() error
}

// forbiddenKeyChars はパスセグメントに使用できない文字。
const forbiddenKeyChars = "/.#$[]"

// ValidateSegment はパスセグメントがキーとして使用可能かを検証する。
func ValidateSegment(segment string) error {
	if segment == "" {
		return fmt.Errorf("%w: empty segment", ErrInvalidPath)
	}
	if len(segment) > 768 {
		return fmt.Errorf("%w: segment too long", ErrInvalidPath)
	}
	if strings.ContainsAny(segment, forbiddenKeyChars) {
		return fmt.Errorf("%w: segment %q contains one of %q", ErrInvalidPath, segment, forbiddenKeyChars)
	}
	for _, r := range segment {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: segment contains control character", ErrInvalidPath)
		}
	}
	return nil
}

// Path はセグメントを検証して "/" で連結したパスを返す。
func Path(segments ...string) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: no segments", ErrInvalidPath)
	}
	for _, s := range segments {
		if err := ValidateSegment(s); err != nil {
			return "", err
		}
	}
	return strings.Join(segments, "/"), nil
}

// childName はprefix直下の子であればその名前を返す。
func childName(prefix, key string) (string, bool) {
	p := strings.TrimSuffix(prefix, "/") + "/"
	if !strings.HasPrefix(key, p) {
		return "", false
	}
	rest := key[len(p):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
