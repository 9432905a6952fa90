package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/drivegate/internal/datastore"
	"github.com/hitoshi/drivegate/internal/model"
)

// TestResourceRepo_UpsertFolder_LastWriteWins は同一IDを2回書き込むと最後の名前のみ残ることを検証する。
func TestResourceRepo_UpsertFolder_LastWriteWins(t *testing.T) {
	repo := NewDatastoreResourceRepo(datastore.NewMemoryStore())
	ctx := context.Background()

	_ = repo.UpsertFolder(ctx, "u1", model.ResourceRecord{ID: "f1", Name: "first"})
	_ = repo.UpsertFolder(ctx, "u1", model.ResourceRecord{ID: "f1", Name: "second"})

	records, err := repo.ListFolders(ctx, "u1")
	if err != nil {
		t.Fatalf("ListFolders failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Name != "second" {
		t.Errorf("Name = %q, want %q", records[0].Name, "second")
	}
	if records[0].Kind != model.KindFolder {
		t.Errorf("Kind = %q, want %q", records[0].Kind, model.KindFolder)
	}
	if records[0].Parents == nil {
		t.Error("Parents should be an empty slice, not nil")
	}
}

// TestResourceRepo_NamespaceIsolation はユーザーAのミラーがユーザーBの一覧に現れないことを検証する。
func TestResourceRepo_NamespaceIsolation(t *testing.T) {
	repo := NewDatastoreResourceRepo(datastore.NewMemoryStore())
	ctx := context.Background()

	_ = repo.UpsertFolder(ctx, "userA", model.ResourceRecord{ID: "a1", Name: "A's folder"})
	_ = repo.UpsertFolder(ctx, "userA", model.ResourceRecord{ID: "a2", Name: "A's other folder"})

	records, err := repo.ListFolders(ctx, "userB")
	if err != nil {
		t.Fatalf("ListFolders failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("userB should see no records, got %+v", records)
	}

	records, err = repo.ListFolders(ctx, "userA")
	if err != nil {
		t.Fatalf("ListFolders failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != "a1" || records[1].ID != "a2" {
		t.Errorf("userA records = %+v", records)
	}
}

func TestResourceRepo_UpsertFile_WritesUnderFilesNamespace(t *testing.T) {
	store := datastore.NewMemoryStore()
	repo := NewDatastoreResourceRepo(store)
	ctx := context.Background()

	rec := model.FileRecord{ID: "file1", Name: "a.txt", MimeType: "text/plain"}
	if err := repo.UpsertFile(ctx, "u1", rec); err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}

	var raw map[string]any
	found, err := store.Get(ctx, "users/u1/files/file1", &raw)
	if err != nil || !found {
		t.Fatalf("Get = (%v, %v)", found, err)
	}
	if raw["name"] != "a.txt" {
		t.Errorf("name = %v, want a.txt", raw["name"])
	}
	if v, ok := raw["parent"]; !ok || v != nil {
		t.Errorf("parent = %v (present=%v), want null", v, ok)
	}

	// ファイルはフォルダ一覧に含まれない
	folders, _ := repo.ListFolders(ctx, "u1")
	if len(folders) != 0 {
		t.Errorf("files must not appear in folder listing: %+v", folders)
	}
}

func TestResourceRepo_InvalidResourceID_ReturnsBadRequest(t *testing.T) {
	repo := NewDatastoreResourceRepo(datastore.NewMemoryStore())

	err := repo.UpsertFolder(context.Background(), "u1", model.ResourceRecord{ID: "bad/id"})
	if !errors.Is(err, model.ErrBadRequest) {
		t.Errorf("err = %v, want ErrBadRequest", err)
	}
}

func TestResourceRepo_StoreFailure_ReturnsStoreUnavailable(t *testing.T) {
	repo := NewDatastoreResourceRepo(&failingStore{err: errors.New("timeout")})
	ctx := context.Background()

	if err := repo.UpsertFolder(ctx, "u1", model.ResourceRecord{ID: "f1"}); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("UpsertFolder err = %v, want ErrStoreUnavailable", err)
	}
	if _, err := repo.ListFolders(ctx, "u1"); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("ListFolders err = %v, want ErrStoreUnavailable", err)
	}
}
