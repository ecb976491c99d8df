// internal/ledger/errors.go
//
// 本檔集中定義帳本的「領域錯誤（domain errors）」。
// 所有錯誤皆為單筆紀錄層級：發生錯誤的紀錄會被略過，帳戶與交易歷史維持不變，
// 後續紀錄照常處理。呼叫端以 errors.Is 判斷錯誤種類。

package ledger

import "errors"

var (
	// ErrValidation 代表金額非法（<=0、超過 4 位小數）或無法解析的紀錄。
	ErrValidation = errors.New("invalid transaction record")

	// ErrDuplicateTransaction 代表存款或提款重複使用既有的交易 ID。
	ErrDuplicateTransaction = errors.New("duplicate transaction id")

	// ErrAccountLocked 代表帳戶已因 chargeback 凍結，不得再存提款。
	ErrAccountLocked = errors.New("account is locked")

	// ErrInsufficientFunds 代表提款金額超過可用餘額。
	ErrInsufficientFunds = errors.New("insufficient available funds")

	// ErrOverflow 代表金額運算超出可表示範圍（屬致命類別，但不中止整批處理）。
	ErrOverflow = errors.New("amount overflow")

	// ErrInvariantViolation 代表運算將破壞 available/held 非負等核心不變式。
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

// IsFatal 回報 err 是否屬於致命類別（溢位或不變式違反）。
// 致命錯誤通常代表上游資料異常，仍只影響單筆紀錄。
func IsFatal(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrInvariantViolation)
}
