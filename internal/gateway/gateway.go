// Package gateway はユーザー向けのストレージ操作を提供する。
//
// 全ての操作はリクエストで指定されたユーザーIDからセッションを構築し、
// そのセッションでリモート呼び出しを行い、同じユーザーの名前空間にだけミラーする。
package gateway

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/drivegate/internal/auth"
	"github.com/hitoshi/drivegate/internal/metrics"
	"github.com/hitoshi/drivegate/internal/model"
	"github.com/hitoshi/drivegate/internal/repository"
	"github.com/hitoshi/drivegate/internal/storage"
)

// 操作名。メトリクスのラベルとログに使用する。
const (
	OpListFolders  = "list_folders"
	OpListChildren = "list_children"
	OpCreateFolder = "create_folder"
	OpUploadFile   = "upload_file"
	OpDownloadFile = "download_file"
	OpGetProfile   = "get_profile"
	OpListMirror   = "list_mirror"
)

// SessionBinder はユーザーIDからセッションを構築する。
type SessionBinder interface {
	Bind(ctx context.Context, userID string) (*auth.Session, error)
}

// ProfileFetcher はセッションのトークンでプロフィールを取得する。
type ProfileFetcher interface {
	GetProfile(ctx context.Context, ts oauth2.TokenSource) (*model.Profile, error)
}

// ResourceMirror はリソースメタデータを非同期にミラーする。
type ResourceMirror interface {
	Folders(ctx context.Context, userID string, records []model.ResourceRecord)
	File(ctx context.Context, userID string, record model.FileRecord)
}

// Folder はフォルダ一覧の1件。
type Folder struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Parents []string `json:"parents"`
}

// Child は子リソース一覧の1件。
type Child struct {
	ID   string             `json:"id"`
	Name string             `json:"name"`
	Type model.ResourceKind `json:"type"`
}

// CreateFolderInput はフォルダ作成の入力。
type CreateFolderInput struct {
	UserID   string
	Name     string
	ParentID string
}

// UploadInput はファイルアップロードの入力。ParentIDとDescriptionは任意。
type UploadInput struct {
	UserID      string
	Name        string
	MimeType    string
	ParentID    string
	Description string
	Content     io.Reader
}

// Gateway はストレージ操作のビジネスロジックを提供する。
type Gateway struct {
	binder    SessionBinder
	storage   storage.Provider
	profiles  ProfileFetcher
	mirror    ResourceMirror
	resources repository.ResourceRepository
	metrics   metrics.MetricsCollector
}

// New はGatewayを生成する。
func New(
	binder SessionBinder,
	provider storage.Provider,
	profiles ProfileFetcher,
	mirror ResourceMirror,
	resources repository.ResourceRepository,
	mc metrics.MetricsCollector,
) *Gateway {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Gateway{
		binder:    binder,
		storage:   provider,
		profiles:  profiles,
		mirror:    mirror,
		resources: resources,
		metrics:   mc,
	}
}

// ListFolders はユーザーの全フォルダを取得し、ユーザー名前空間にミラーする。
func (g *Gateway) ListFolders(ctx context.Context, userID string) (folders []Folder, err error) {
	if userID == "" {
		return nil, requiredError("userId")
	}
	defer g.observe(OpListFolders, time.Now(), &err)

	session, err := g.binder.Bind(ctx, userID)
	if err != nil {
		return nil, err
	}

	files, err := g.storage.ListFolders(ctx, session.TokenSource)
	if err != nil {
		return nil, err
	}

	folders = make([]Folder, 0, len(files))
	records := make([]model.ResourceRecord, 0, len(files))
	for _, f := range files {
		folders = append(folders, Folder{ID: f.ID, Name: f.Name, Parents: f.Parents})
		records = append(records, model.ResourceRecord{
			ID:      f.ID,
			Name:    f.Name,
			Parents: f.Parents,
			Kind:    model.KindFolder,
		})
	}
	g.mirror.Folders(ctx, session.UserID, records)

	return folders, nil
}

// ListChildren はparentID直下のリソースを種別付きで返す。ミラーは更新しない。
func (g *Gateway) ListChildren(ctx context.Context, userID, parentID string) (children []Child, err error) {
	if userID == "" || parentID == "" {
		return nil, requiredError("userId and folder id")
	}
	defer g.observe(OpListChildren, time.Now(), &err)

	session, err := g.binder.Bind(ctx, userID)
	if err != nil {
		return nil, err
	}

	files, err := g.storage.ListChildren(ctx, session.TokenSource, parentID)
	if err != nil {
		return nil, err
	}

	children = make([]Child, 0, len(files))
	for _, f := range files {
		children = append(children, Child{ID: f.ID, Name: f.Name, Type: model.KindFromMimeType(f.MimeType)})
	}
	return children, nil
}

// CreateFolder はユーザーのセッションでフォルダを作成し、ユーザー名前空間にミラーする。
func (g *Gateway) CreateFolder(ctx context.Context, in CreateFolderInput) (folderID string, err error) {
	if in.Name == "" {
		return "", requiredError("name")
	}
	if in.UserID == "" {
		return "", requiredError("userId")
	}
	defer g.observe(OpCreateFolder, time.Now(), &err)

	session, err := g.binder.Bind(ctx, in.UserID)
	if err != nil {
		return "", err
	}

	created, err := g.storage.CreateFolder(ctx, session.TokenSource, in.Name, in.ParentID)
	if err != nil {
		return "", err
	}

	g.mirror.Folders(ctx, session.UserID, []model.ResourceRecord{{
		ID:      created.ID,
		Name:    in.Name,
		Parents: created.Parents,
		Kind:    model.KindFolder,
	}})
	return created.ID, nil
}

// UploadFile はファイルをアップロードし、users/{userID}/files/{id} にレコードをミラーする。
func (g *Gateway) UploadFile(ctx context.Context, in UploadInput) (fileID string, err error) {
	switch {
	case in.UserID == "":
		return "", requiredError("userId")
	case in.Content == nil:
		return "", requiredError("file")
	case in.Name == "" || in.MimeType == "":
		return "", requiredError("name and mimeType")
	}
	defer g.observe(OpUploadFile, time.Now(), &err)

	session, err := g.binder.Bind(ctx, in.UserID)
	if err != nil {
		return "", err
	}

	created, err := g.storage.CreateFile(ctx, session.TokenSource, storage.FileMetadata{
		Name:        in.Name,
		MimeType:    in.MimeType,
		Description: in.Description,
		ParentID:    in.ParentID,
	}, in.Content)
	if err != nil {
		return "", err
	}

	record := model.FileRecord{
		ID:          created.ID,
		Description: in.Description,
		Name:        in.Name,
		MimeType:    in.MimeType,
	}
	if in.ParentID != "" {
		parent := in.ParentID
		record.Parent = &parent
	}
	g.mirror.File(ctx, session.UserID, record)

	return created.ID, nil
}

// DownloadFile はファイルの内容をストリームで返す。呼び出し側がBodyを閉じる。
func (g *Gateway) DownloadFile(ctx context.Context, userID, fileID string) (dl *storage.Download, err error) {
	if userID == "" || fileID == "" {
		return nil, requiredError("userId and file id")
	}
	defer g.observe(OpDownloadFile, time.Now(), &err)

	session, err := g.binder.Bind(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.storage.Download(ctx, session.TokenSource, fileID)
}

// GetProfile はユーザーのプロフィールを取得する。
func (g *Gateway) GetProfile(ctx context.Context, userID string) (profile *model.Profile, err error) {
	if userID == "" {
		return nil, requiredError("userId")
	}
	defer g.observe(OpGetProfile, time.Now(), &err)

	session, err := g.binder.Bind(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.profiles.GetProfile(ctx, session.TokenSource)
}

// ListMirror はユーザー名前空間にミラーされたフォルダレコードを返す。
func (g *Gateway) ListMirror(ctx context.Context, userID string) (records []model.ResourceRecord, err error) {
	if userID == "" {
		return nil, requiredError("userId")
	}
	defer g.observe(OpListMirror, time.Now(), &err)

	session, err := g.binder.Bind(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.resources.ListFolders(ctx, session.UserID)
}

// observe は操作の結果と所要時間を記録する。
func (g *Gateway) observe(op string, start time.Time, err *error) {
	g.metrics.RecordOperation(op, metrics.ResultOf(*err), time.Since(start))
}

// requiredError は必須パラメータ欠落のBadRequestエラーを生成する。
func requiredError(field string) error {
	return fmt.Errorf("%w: %s is required", model.ErrBadRequest, field)
}
