package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hitoshi/drivegate/internal/datastore"
	"github.com/hitoshi/drivegate/internal/model"
)

// DatastoreResourceRepo はdatastore.Storeを使用したResourceRepository実装。
type DatastoreResourceRepo struct {
	store datastore.Store
}

// NewDatastoreResourceRepo はDatastoreResourceRepoを生成する。
func NewDatastoreResourceRepo(store datastore.Store) *DatastoreResourceRepo {
	return &DatastoreResourceRepo{store: store}
}

// UpsertFolder はフォルダレコードをIDをキーとして上書き保存する。
func (r *DatastoreResourceRepo) UpsertFolder(ctx context.Context, userID string, record model.ResourceRecord) error {
	path, err := userPath(userID, "resources", record.ID)
	if err != nil {
		return err
	}

	if record.Parents == nil {
		record.Parents = []string{}
	}
	if record.Kind == "" {
		record.Kind = model.KindFolder
	}

	if err := r.store.Set(ctx, path, record); err != nil {
		return wrapStoreError("upsert folder", err)
	}
	return nil
}

// UpsertFile はファイルレコードをIDをキーとして上書き保存する。
func (r *DatastoreResourceRepo) UpsertFile(ctx context.Context, userID string, record model.FileRecord) error {
	path, err := userPath(userID, "files", record.ID)
	if err != nil {
		return err
	}

	if err := r.store.Set(ctx, path, record); err != nil {
		return wrapStoreError("upsert file", err)
	}
	return nil
}

// ListFolders はユーザー名前空間のフォルダレコードをID順で返す。
func (r *DatastoreResourceRepo) ListFolders(ctx context.Context, userID string) ([]model.ResourceRecord, error) {
	prefix, err := userPath(userID, "resources")
	if err != nil {
		return nil, err
	}

	entries, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, wrapStoreError("list folders", err)
	}

	records := make([]model.ResourceRecord, 0, len(entries))
	for id, raw := range entries {
		var rec model.ResourceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("list folders: failed to decode %s: %w", id, err)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	return records, nil
}

// compile-time interface check
var _ ResourceRepository = (*DatastoreResourceRepo)(nil)
