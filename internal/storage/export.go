// internal/storage/export.go

package storage

import (
	"context"
	"errors"
)

// Exporter 依設定將報表輸出到 JSON 檔與／或 SQLite；兩者皆未設定時不做任何事。
type Exporter struct {
	jsonPath string
	sqlite   *SQLiteExporter
}

// NewExporter 建立報表輸出器；路徑為空字串代表停用該輸出。
func NewExporter(jsonPath, sqlitePath string) (*Exporter, error) {
	x := &Exporter{jsonPath: jsonPath}
	if sqlitePath != "" {
		db, err := OpenSQLite(sqlitePath)
		if err != nil {
			return nil, err
		}
		x.sqlite = db
	}
	return x, nil
}

// Enabled 回報是否有任何輸出目標。
func (x *Exporter) Enabled() bool { return x.jsonPath != "" || x.sqlite != nil }

// Targets 回傳啟用中的輸出目標路徑，供啟動時記錄。
func (x *Exporter) Targets() []string {
	var out []string
	if x.jsonPath != "" {
		out = append(out, x.jsonPath)
	}
	if x.sqlite != nil {
		out = append(out, x.sqlite.Path())
	}
	return out
}

// Export 寫出報表；各目標的錯誤合併回傳。
func (x *Exporter) Export(ctx context.Context, snap Snapshot) error {
	var errs []error
	if x.jsonPath != "" {
		errs = append(errs, SaveSnapshot(x.jsonPath, snap))
	}
	if x.sqlite != nil {
		errs = append(errs, x.sqlite.Export(ctx, snap))
	}
	return errors.Join(errs...)
}

// Close 釋放 SQLite 連線。
func (x *Exporter) Close() error {
	if x.sqlite == nil {
		return nil
	}
	return x.sqlite.Close()
}
