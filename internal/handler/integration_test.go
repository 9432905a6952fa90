package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"

	"github.com/hitoshi/drivegate/internal/auth"
	"github.com/hitoshi/drivegate/internal/datastore"
	"github.com/hitoshi/drivegate/internal/gateway"
	"github.com/hitoshi/drivegate/internal/metrics"
	"github.com/hitoshi/drivegate/internal/middleware"
	"github.com/hitoshi/drivegate/internal/mirror"
	"github.com/hitoshi/drivegate/internal/model"
	"github.com/hitoshi/drivegate/internal/repository"
	"github.com/hitoshi/drivegate/internal/security"
	"github.com/hitoshi/drivegate/internal/storage"
)

// fakeStorage はユーザーごとのフォルダを返すインメモリのstorage.Provider。
// トークンのアクセストークンをユーザーの識別に使う。
type fakeStorage struct {
	mu       sync.Mutex
	calls    int
	folders  map[string][]model.RemoteFile
	children map[string][]model.RemoteFile
	uploads  map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		folders:  make(map[string][]model.RemoteFile),
		children: make(map[string][]model.RemoteFile),
		uploads:  make(map[string]string),
	}
}

func (f *fakeStorage) token(ts oauth2.TokenSource) string {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	tok, err := ts.Token()
	if err != nil {
		return ""
	}
	return tok.AccessToken
}

func (f *fakeStorage) ListFolders(ctx context.Context, ts oauth2.TokenSource) ([]model.RemoteFile, error) {
	return f.folders[f.token(ts)], nil
}

func (f *fakeStorage) ListChildren(ctx context.Context, ts oauth2.TokenSource, parentID string) ([]model.RemoteFile, error) {
	f.token(ts)
	return f.children[parentID], nil
}

func (f *fakeStorage) CreateFolder(ctx context.Context, ts oauth2.TokenSource, name, parentID string) (*model.RemoteFile, error) {
	f.token(ts)
	return &model.RemoteFile{ID: "folder-" + name, Name: name, MimeType: model.FolderMimeType, Parents: []string{parentID}}, nil
}

func (f *fakeStorage) CreateFile(ctx context.Context, ts oauth2.TokenSource, meta storage.FileMetadata, content io.Reader) (*model.RemoteFile, error) {
	f.token(ts)
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "file-" + meta.Name
	f.uploads[id] = string(data)
	return &model.RemoteFile{ID: id, Name: meta.Name, MimeType: meta.MimeType}, nil
}

func (f *fakeStorage) Download(ctx context.Context, ts oauth2.TokenSource, fileID string) (*storage.Download, error) {
	f.token(ts)
	f.mu.Lock()
	defer f.mu.Unlock()
	return &storage.Download{Body: io.NopCloser(strings.NewReader(f.uploads[fileID])), ContentType: "text/plain"}, nil
}

type staticTokenSources struct{}

func (staticTokenSources) TokenSource(_ context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(tok)
}

type tokenProfiles struct{}

func (tokenProfiles) GetProfile(ctx context.Context, ts oauth2.TokenSource) (*model.Profile, error) {
	tok, err := ts.Token()
	if err != nil {
		return nil, err
	}
	return &model.Profile{ID: tok.AccessToken, Name: "user of " + tok.AccessToken}, nil
}

// integrationEnv はメモリデータストア上で全層を組み立てたルーター。
type integrationEnv struct {
	router    http.Handler
	storage   *fakeStorage
	store     *datastore.MemoryStore
	creds     repository.CredentialRepository
	resources repository.ResourceRepository
	mirror    *mirror.Mirror
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	store := datastore.NewMemoryStore()
	creds := repository.NewDatastoreCredentialRepo(store)
	resources := repository.NewDatastoreResourceRepo(store)
	m := mirror.New(resources, security.NewTextSanitizer(), metrics.NopCollector{}, mirror.DefaultConfig())
	fs := newFakeStorage()
	binder := auth.NewBinder(creds, staticTokenSources{}, nil)
	gw := gateway.New(binder, fs, tokenProfiles{}, m, resources, nil)

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		RateLimiter:   rl,
		HealthChecker: store,
		AuthService:   &mockAuthService{},
		AuthConfig:    AuthHandlerConfig{FrontendURL: "http://localhost:3000"},
		DriveService:  gw,
		UserService:   NewUserServiceAdapter(gw),
	})

	return &integrationEnv{router: router, storage: fs, store: store, creds: creds, resources: resources, mirror: m}
}

// login はユーザーのトークンを保存する。アクセストークンは "token-{userID}"。
func (e *integrationEnv) login(t *testing.T, userID string) {
	t.Helper()
	if err := e.creds.Put(context.Background(), userID, &model.TokenSet{AccessToken: "token-" + userID}); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func (e *integrationEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// TestIntegration_UploadWithoutFolder_MirrorsNullParent はフォルダ未指定のアップロードが
// parent: null のレコードとしてミラーされることを検証する。
func TestIntegration_UploadWithoutFolder_MirrorsNullParent(t *testing.T) {
	env := newIntegrationEnv(t)
	env.login(t, "u1")

	body, contentType := multipartBody(t, map[string]string{
		"userId":   "u1",
		"name":     "a.txt",
		"mimeType": "text/plain",
	}, []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/drive/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	fileID := resp["fileId"]
	if fileID == "" || resp["message"] == "" {
		t.Fatalf("response = %v", resp)
	}
	if got := env.storage.uploads[fileID]; got != "hello" {
		t.Errorf("uploaded content = %q, want %q", got, "hello")
	}

	env.mirror.Wait()

	var record map[string]any
	found, err := env.store.Get(context.Background(), "users/u1/files/"+fileID, &record)
	if err != nil || !found {
		t.Fatalf("mirror record not found: found=%v err=%v", found, err)
	}
	if v, ok := record["parent"]; !ok || v != nil {
		t.Errorf("parent = %v (present=%v), want null", v, ok)
	}
	if record["name"] != "a.txt" || record["mimeType"] != "text/plain" {
		t.Errorf("record = %v", record)
	}
}

// TestIntegration_UploadWithoutTokens_Returns403 はトークン未保存のユーザーが403となり
// リモート呼び出しが発生しないことを検証する。
func TestIntegration_UploadWithoutTokens_Returns403(t *testing.T) {
	env := newIntegrationEnv(t)

	body, contentType := multipartBody(t, map[string]string{
		"userId":   "ghost",
		"name":     "a.txt",
		"mimeType": "text/plain",
	}, []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/drive/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := env.do(req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeNotAuthenticated {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeNotAuthenticated)
	}
	if env.storage.calls != 0 {
		t.Errorf("remote calls = %d, want 0", env.storage.calls)
	}
}

// TestIntegration_ListChildren_ReportsKinds は子リソースの種別がmime typeから決まることを検証する。
func TestIntegration_ListChildren_ReportsKinds(t *testing.T) {
	env := newIntegrationEnv(t)
	env.login(t, "u1")
	env.storage.children["p1"] = []model.RemoteFile{
		{ID: "f1", Name: "sub", MimeType: model.FolderMimeType},
		{ID: "f2", Name: "a.txt", MimeType: "text/plain"},
	}

	w := env.do(httptest.NewRequest(http.MethodGet, "/drive/folders/p1?userId=u1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var children []map[string]string
	if err := json.NewDecoder(w.Body).Decode(&children); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("len(children) = %d, want 2", len(children))
	}
	if children[0]["id"] != "f1" || children[0]["type"] != "folder" {
		t.Errorf("children[0] = %v", children[0])
	}
	if children[1]["id"] != "f2" || children[1]["type"] != "file" {
		t.Errorf("children[1] = %v", children[1])
	}
}

// TestIntegration_FolderMirrorIsolation は一覧のミラーが他ユーザーの名前空間に現れないことを検証する。
func TestIntegration_FolderMirrorIsolation(t *testing.T) {
	env := newIntegrationEnv(t)
	env.login(t, "alice")
	env.login(t, "bob")
	env.storage.folders["token-alice"] = []model.RemoteFile{{ID: "a1", Name: "Alice Docs", Parents: []string{"root"}}}
	env.storage.folders["token-bob"] = []model.RemoteFile{{ID: "b1", Name: "Bob Docs", Parents: []string{"root"}}}

	for _, user := range []string{"alice", "bob"} {
		if w := env.do(httptest.NewRequest(http.MethodGet, "/drive/folders?userId="+user, nil)); w.Code != http.StatusOK {
			t.Fatalf("%s list: status = %d", user, w.Code)
		}
	}
	env.mirror.Wait()

	w := env.do(httptest.NewRequest(http.MethodGet, "/drive/mirror?userId=bob", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("mirror: status = %d", w.Code)
	}
	var records []model.ResourceRecord
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(records) != 1 || records[0].ID != "b1" {
		t.Errorf("bob's mirror = %+v, want only b1", records)
	}
}

// TestIntegration_CreateFolder_RequiresUserID はuserIdなしのフォルダ作成が400になることを検証する。
func TestIntegration_CreateFolder_RequiresUserID(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(httptest.NewRequest(http.MethodPost, "/drive/folders", strings.NewReader(`{"name":"Reports"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if env.storage.calls != 0 {
		t.Errorf("remote calls = %d, want 0", env.storage.calls)
	}
}

func TestIntegration_CreateFolder_MirrorsIntoUserNamespace(t *testing.T) {
	env := newIntegrationEnv(t)
	env.login(t, "u1")

	w := env.do(httptest.NewRequest(http.MethodPost, "/drive/folders", strings.NewReader(`{"name":"Reports","userId":"u1","parentId":"root"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", w.Code, w.Body.String())
	}
	env.mirror.Wait()

	records, err := env.resources.ListFolders(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(records) != 1 || records[0].ID != "folder-Reports" {
		t.Errorf("records = %+v", records)
	}
}

func TestIntegration_DownloadAndProfile(t *testing.T) {
	env := newIntegrationEnv(t)
	env.login(t, "u1")
	env.storage.uploads["file-1"] = "payload"

	w := env.do(httptest.NewRequest(http.MethodGet, "/drive/files/file-1/download?userId=u1", nil))
	if w.Code != http.StatusOK || w.Body.String() != "payload" {
		t.Errorf("download: status = %d body = %q", w.Code, w.Body.String())
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/user/profile?userId=u1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("profile: status = %d", w.Code)
	}
	var profile map[string]string
	json.NewDecoder(w.Body).Decode(&profile)
	if profile["name"] != "user of token-u1" {
		t.Errorf("profile name = %q", profile["name"])
	}
}

func TestIntegration_Health(t *testing.T) {
	env := newIntegrationEnv(t)

	if w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
