// internal/storage/model.go
//
// 定義「報表輸出層 (storage layer)」的結構模型。
// 該層只負責把一次處理的最終帳戶快照序列化（JSON 檔或 SQLite），
// 並保存必要的中繼資訊 (Meta)；帳本引擎狀態不會被重新載入。
package storage

import (
	"time"

	"payments/internal/ledger"
)

// Meta 為報表快照的中繼資料 (metadata)。
type Meta struct {
	Storage   string    `json:"storage"`        // 儲存類型，例如 "json_snapshot"
	Version   int       `json:"version"`        // 結構版本號
	Timestamp time.Time `json:"timestamp"`      // 快照建立時間
	Note      string    `json:"note,omitempty"` // 備註欄，可選
}

// PersistAccount 為帳戶在輸出層的序列化格式。
// 金額以固定 4 位小數的字串保存，避免 JSON 數字的浮點誤差。
type PersistAccount struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// Snapshot 為一次處理的完整報表。
type Snapshot struct {
	Meta     Meta             `json:"_meta"`
	Stats    ledger.Stats     `json:"stats"`
	Accounts []PersistAccount `json:"accounts"`
}

// CurrentVersion 為目前的報表結構版本。
const CurrentVersion = 1

// FromAccounts 將帳戶快照轉為可輸出的報表，保留原本的帳戶順序。
func FromAccounts(accounts []ledger.AccountSnapshot, stats ledger.Stats) Snapshot {
	s := Snapshot{
		Meta:     Meta{Version: CurrentVersion},
		Stats:    stats,
		Accounts: make([]PersistAccount, 0, len(accounts)),
	}
	for _, a := range accounts {
		s.Accounts = append(s.Accounts, PersistAccount{
			Client:    uint16(a.Client),
			Available: a.Available.String(),
			Held:      a.Held.String(),
			Total:     a.Total.String(),
			Locked:    a.Locked,
		})
	}
	return s
}
