package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/drivegate/internal/gateway"
	"github.com/hitoshi/drivegate/internal/middleware"
	"github.com/hitoshi/drivegate/internal/model"
	"github.com/hitoshi/drivegate/internal/storage"
)

// DefaultUploadMaxBytes はアップロードリクエストボディの既定の上限。
const DefaultUploadMaxBytes int64 = 32 << 20

// multipartMemory はmultipartの解析でメモリに保持する上限。超過分は一時ファイルに書き出される。
const multipartMemory int64 = 8 << 20

// DriveServiceInterface はドライブハンドラーが必要とするサービスインターフェース。
type DriveServiceInterface interface {
	ListFolders(ctx context.Context, userID string) ([]gateway.Folder, error)
	ListChildren(ctx context.Context, userID, parentID string) ([]gateway.Child, error)
	CreateFolder(ctx context.Context, in gateway.CreateFolderInput) (string, error)
	UploadFile(ctx context.Context, in gateway.UploadInput) (string, error)
	DownloadFile(ctx context.Context, userID, fileID string) (*storage.Download, error)
	ListMirror(ctx context.Context, userID string) ([]model.ResourceRecord, error)
}

// DriveHandler はストレージ操作のHTTPハンドラー。
type DriveHandler struct {
	service        DriveServiceInterface
	uploadMaxBytes int64
}

// NewDriveHandler はDriveHandlerを生成する。uploadMaxBytesが0以下の場合は既定値を使う。
func NewDriveHandler(service DriveServiceInterface, uploadMaxBytes int64) *DriveHandler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = DefaultUploadMaxBytes
	}
	return &DriveHandler{
		service:        service,
		uploadMaxBytes: uploadMaxBytes,
	}
}

// createFolderRequest はフォルダ作成リクエストのボディ。
type createFolderRequest struct {
	Name     string `json:"name"`
	UserID   string `json:"userId"`
	ParentID string `json:"parentId"`
}

type createFolderResponse struct {
	FolderID string `json:"folderId"`
}

type uploadResponse struct {
	FileID  string `json:"fileId"`
	Message string `json:"message"`
}

// ListFolders はユーザーの全フォルダを返す。
// GET /drive/folders?userId=
func (h *DriveHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.service.ListFolders(r.Context(), middleware.UserIDFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if folders == nil {
		folders = []gateway.Folder{}
	}
	writeJSON(w, http.StatusOK, folders)
}

// ListChildren は指定フォルダ直下のリソースを返す。
// GET /drive/folders/{id}?userId=
func (h *DriveHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.service.ListChildren(r.Context(), middleware.UserIDFromRequest(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if children == nil {
		children = []gateway.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

// CreateFolder はフォルダを作成する。
// POST /drive/folders {name, userId, parentId}
func (h *DriveHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "リクエストボディが不正です。")
		return
	}

	folderID, err := h.service.CreateFolder(r.Context(), gateway.CreateFolderInput{
		UserID:   req.UserID,
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createFolderResponse{FolderID: folderID})
}

// UploadFile はmultipartで受け取ったファイルをアップロードする。
// POST /drive/upload (file, name, mimeType, folderId, description, userId)
func (h *DriveHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.uploadMaxBytes {
		writeBadRequest(w, h.tooLargeMessage())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBadRequest(w, h.tooLargeMessage())
			return
		}
		writeBadRequest(w, "multipart form is required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		writeBadRequest(w, "multipart form is required")
		return
	}

	in := gateway.UploadInput{
		UserID:      r.FormValue("userId"),
		Name:        r.FormValue("name"),
		MimeType:    r.FormValue("mimeType"),
		ParentID:    r.FormValue("folderId"),
		Description: r.FormValue("description"),
	}
	if file != nil {
		defer file.Close()
		in.Content = file
	}

	fileID, err := h.service.UploadFile(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{FileID: fileID, Message: "File uploaded successfully."})
}

func (h *DriveHandler) tooLargeMessage() string {
	return fmt.Sprintf("file exceeds the upload limit of %d bytes", h.uploadMaxBytes)
}

// DownloadFile はファイルの内容をストリームで返す。
// GET /drive/files/{id}/download?userId=
func (h *DriveHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "id")
	dl, err := h.service.DownloadFile(r.Context(), middleware.UserIDFromRequest(r), fileID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	defer dl.Body.Close()

	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileID))
	if dl.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	// ヘッダー送信後の失敗はステータスを変更できないためログのみ
	if _, err := io.Copy(w, dl.Body); err != nil {
		slog.Warn("failed to stream download",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}

// ListMirror はユーザー名前空間にミラーされたフォルダを返す。
// GET /drive/mirror?userId=
func (h *DriveHandler) ListMirror(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListMirror(r.Context(), middleware.UserIDFromRequest(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []model.ResourceRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// compile-time interface check
var _ DriveServiceInterface = (*gateway.Gateway)(nil)
