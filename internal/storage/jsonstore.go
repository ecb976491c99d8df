// internal/storage/jsonstore.go
//
// 提供報表快照 (Snapshot) 的 JSON 序列化與反序列化。
// 採「原子寫入」策略 (atomic write)：先寫入同目錄下唯一的暫存檔，再以 rename() 取代原檔，
// 寫入中途失敗時原檔不會損壞；多個寫入者同時寫同一路徑也不會互相覆蓋暫存檔。
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LoadSnapshot 讀取指定路徑的 JSON 報表。
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode %s: %w", path, err)
	}
	return snap, nil
}

// SaveSnapshot 將報表寫成 JSON 檔案，並採原子方式寫入。
// 流程：
//  1. 設定 Meta.Storage 與當前時間戳。
//  2. 於同目錄以 os.CreateTemp 建立唯一暫存檔並寫入。
//  3. 寫入完成後使用 os.Rename() 取代正式檔案。
func SaveSnapshot(path string, snap Snapshot) error {
	snap.Meta.Storage = "json_snapshot"
	snap.Meta.Timestamp = time.Now()
	if snap.Meta.Version == 0 {
		snap.Meta.Version = CurrentVersion
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// 縮排輸出，方便人工檢視
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	// 原子替換
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
