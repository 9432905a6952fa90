// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ドメインエラーの分類。サービス層はこれらをラップして返し、
// ハンドラー層はerrors.Isで判定してHTTPステータスに変換する。
var (
	// ErrBadRequest は必須パラメータの欠落・不正を表す。
	ErrBadRequest = errors.New("bad request")

	// ErrInvalidUserID はユーザーIDが空、またはキーとして使用できない形式であることを表す。
	ErrInvalidUserID = fmt.Errorf("invalid user id: %w", ErrBadRequest)

	// ErrNotAuthenticated は指定ユーザーのトークンが保存されていないことを表す。
	// 一時的な障害ではなく、再ログインが必要な状態として扱う。
	ErrNotAuthenticated = errors.New("user is not authenticated")

	// ErrUpstreamFailure はIdPまたはストレージプロバイダー呼び出しの失敗を表す。
	// 期限切れトークンと失効トークンは区別しない。
	ErrUpstreamFailure = errors.New("upstream provider call failed")

	// ErrCodeExchangeFailed は認可コードの交換失敗を表す。
	// 認可コードは一度しか使えないため、再送された同一コードもこのエラーになる。
	ErrCodeExchangeFailed = fmt.Errorf("authorization code exchange failed: %w", ErrUpstreamFailure)

	// ErrStoreUnavailable はデータストアのI/O失敗を表す。
	ErrStoreUnavailable = errors.New("datastore unavailable")
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeUpstreamFailure  = "UPSTREAM_FAILURE"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewBadRequestError は必須パラメータ欠落エラーを生成する。
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeBadRequest,
		Message:  message,
		Category: "validation",
		Action:   "必須パラメータを指定して再度リクエストしてください。",
	}
}

// NewNotAuthenticatedError は未認証エラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "User is not authenticated.",
		Category: "auth",
		Action:   "Googleアカウントで再度ログインしてください。",
	}
}

// NewUpstreamFailureError は外部プロバイダー呼び出し失敗エラーを生成する。
// 原因のメッセージをそのまま含める。
func NewUpstreamFailureError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailure,
		Message:  cause.Error(),
		Category: "upstream",
		Action:   "問題が続く場合は再度ログインしてください。",
	}
}

// NewStoreUnavailableError はデータストア障害エラーを生成する。
func NewStoreUnavailableError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  cause.Error(),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests.",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は分類できない内部エラーを生成する。
func NewInternalError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  cause.Error(),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
