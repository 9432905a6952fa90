package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/drivegate/internal/middleware"
	"github.com/hitoshi/drivegate/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeBadRequest は400の統一エラーレスポンスを書き込む。
func writeBadRequest(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, model.NewBadRequestError(message))
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
//
//	BadRequest / InvalidUserID → 400
//	NotAuthenticated           → 403
//	UpstreamFailure            → 500
//	StoreUnavailable           → 500
//
// 500のレスポンスには原因のメッセージを含める。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode, apiErr := mapServiceError(err)

	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("code", apiErr.Code),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	}
	if statusCode >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}

	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// mapServiceError はエラーの分類からHTTPステータスとAPIErrorを決定する。
func mapServiceError(err error) (int, *model.APIError) {
	apiErr := middleware.ClassifyError(err)
	return middleware.StatusCodeFor(apiErr.Code), apiErr
}
