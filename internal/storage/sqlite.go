// internal/storage/sqlite.go
//
// SQLiteExporter 將報表寫入 SQLite 檔案的 accounts 表。
// 每次輸出在單一交易內先清空再寫入，表內容永遠對應最近一次的處理結果。
// 金額同時保存整數（萬分之一單位）與固定 4 位小數文字。
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"payments/internal/money"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const accountsSchema = `CREATE TABLE IF NOT EXISTS accounts (
	client          INTEGER PRIMARY KEY,
	position        INTEGER NOT NULL,
	available_units INTEGER NOT NULL,
	held_units      INTEGER NOT NULL,
	total_units     INTEGER NOT NULL,
	available       TEXT NOT NULL,
	held            TEXT NOT NULL,
	total           TEXT NOT NULL,
	locked          INTEGER NOT NULL
)`

// SQLiteExporter 為 SQLite 報表輸出器。
type SQLiteExporter struct {
	db   *sql.DB
	path string
}

// OpenSQLite 開啟（必要時建立）SQLite 報表檔。
func OpenSQLite(path string) (*SQLiteExporter, error) {
	if path == "" {
		path = "ledger.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(accountsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create accounts table: %w", err)
	}
	return &SQLiteExporter{db: db, path: path}, nil
}

// Path 回傳資料庫檔案路徑。
func (x *SQLiteExporter) Path() string { return x.path }

// Close 關閉資料庫連線。
func (x *SQLiteExporter) Close() error { return x.db.Close() }

// Export 以單一交易取代 accounts 表內容。
func (x *SQLiteExporter) Export(ctx context.Context, snap Snapshot) (retErr error) {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO accounts
		(client, position, available_units, held_units, total_units, available, held, total, locked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, a := range snap.Accounts {
		available, held, total, err := parseAmounts(a)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			int64(a.Client), i,
			available.MinorUnits(), held.MinorUnits(), total.MinorUnits(),
			a.Available, a.Held, a.Total, a.Locked,
		); err != nil {
			return fmt.Errorf("insert client %d: %w", a.Client, err)
		}
	}
	return tx.Commit()
}

// Accounts 依輸出順序讀回 accounts 表。
func (x *SQLiteExporter) Accounts(ctx context.Context) ([]PersistAccount, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT client, available_units, held_units, total_units, locked FROM accounts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []PersistAccount
	for rows.Next() {
		var (
			client                 int64
			available, held, total int64
			locked                 bool
		)
		if err := rows.Scan(&client, &available, &held, &total, &locked); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, PersistAccount{
			Client:    uint16(client),
			Available: money.FromMinorUnits(available).String(),
			Held:      money.FromMinorUnits(held).String(),
			Total:     money.FromMinorUnits(total).String(),
			Locked:    locked,
		})
	}
	return out, rows.Err()
}

func parseAmounts(a PersistAccount) (available, held, total money.Money, err error) {
	if available, err = money.Parse(a.Available); err != nil {
		return
	}
	if held, err = money.Parse(a.Held); err != nil {
		return
	}
	total, err = money.Parse(a.Total)
	if err != nil {
		err = fmt.Errorf("client %d: %w", a.Client, err)
	}
	return
}
