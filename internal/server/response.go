// internal/server/response.go
//
// 本檔負責統一 HTTP 回應格式：
//   - JSON 回應使用 writeJSON（Content-Type: application/json）。
//   - 帳戶表使用 writeCSV（Content-Type: text/csv），格式與 CLI 輸出相同。
//   - 錯誤統一由 writeErr 以純文字輸出。
package server

import (
	"encoding/json"
	"net/http"

	"payments/internal/csvio"
	"payments/internal/ledger"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeCSV(w http.ResponseWriter, code int, accounts []ledger.AccountSnapshot) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(code)
	_ = csvio.NewWriter(w).WriteAccounts(accounts)
}

func writeErr(w http.ResponseWriter, err error, code int) {
	http.Error(w, err.Error(), code)
}
