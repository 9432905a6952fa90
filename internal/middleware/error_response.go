package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/drivegate/internal/model"
)

// errInternal はパニックなど詳細をクライアントに返さない内部エラー。
var errInternal = errors.New("internal server error")

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ClassifyError はドメインエラーをAPIErrorに変換する。
// 500系のAPIErrorは原因のメッセージをそのまま含む。
func ClassifyError(err error) *model.APIError {
	switch {
	case errors.Is(err, model.ErrBadRequest):
		return model.NewBadRequestError(err.Error())
	case errors.Is(err, model.ErrNotAuthenticated):
		return model.NewNotAuthenticatedError()
	case errors.Is(err, model.ErrUpstreamFailure):
		return model.NewUpstreamFailureError(err)
	case errors.Is(err, model.ErrStoreUnavailable):
		return model.NewStoreUnavailableError(err)
	default:
		return model.NewInternalError(err)
	}
}

// StatusCodeFor はエラーコードに対応するHTTPステータスを返す。
//
//	BAD_REQUEST       → 400
//	NOT_AUTHENTICATED → 403
//	RATE_LIMITED      → 429
//	それ以外          → 500
func StatusCodeFor(code string) int {
	switch code {
	case model.ErrCodeBadRequest:
		return http.StatusBadRequest
	case model.ErrCodeNotAuthenticated:
		return http.StatusForbidden
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteAPIError はエラーコードから決まるステータスでAPIErrorを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusCodeFor(apiErr.Code), apiErr)
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}); err != nil {
		slog.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError は内部サーバーエラーを書き込む。
// 詳細はログのみに記録し、レスポンスには一般的なメッセージだけを含める。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, model.NewInternalError(errInternal))
}
