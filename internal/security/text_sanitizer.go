// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はミラーに保存するファイルの説明文からマークアップを除去する。
// 表示名はリモートの識別子として扱うため対象外。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由記述の文字列をプレーンテキストにするインターフェース。
type TextSanitizer interface {
	// Sanitize は全てのHTMLタグを除去したプレーンテキストを返す。
	// script, styleの中身も除去する。前後の空白は取り除く。
	Sanitize(s string) string
}

// textSanitizer はbluemondayのStrictPolicyによるTextSanitizer実装。
// ポリシーはスレッドセーフ。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はsからタグを除去する。
// エンコードされたタグも除去するため、入力の実体参照を先に展開する。
// StrictPolicyは出力をHTMLエスケープするので、最後に展開してプレーンテキストに戻す。
func (s *textSanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(html.UnescapeString(text))
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// compile-time interface check
var _ TextSanitizer = (*textSanitizer)(nil)
