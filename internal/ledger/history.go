// internal/ledger/history.go
//
// TransactionHistory 保存可被爭議的交易（僅存款與提款），以交易 ID 為鍵。
// 只增不刪；每筆紀錄的爭議狀態單向前進：None → Disputed → Resolved / ChargedBack。

package ledger

import (
	"fmt"

	"payments/internal/money"
)

// TxKind 為可保存交易的種類。
type TxKind int

const (
	KindDeposit TxKind = iota + 1
	KindWithdrawal
)

func (k TxKind) String() string {
	switch k {
	case KindDeposit:
		return "deposit"
	case KindWithdrawal:
		return "withdrawal"
	default:
		return fmt.Sprintf("TxKind(%d)", int(k))
	}
}

// DisputeState 為交易的爭議狀態。
type DisputeState int

const (
	StateNone DisputeState = iota
	StateDisputed
	StateResolved
	StateChargedBack
)

func (s DisputeState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateDisputed:
		return "disputed"
	case StateResolved:
		return "resolved"
	case StateChargedBack:
		return "charged_back"
	default:
		return fmt.Sprintf("DisputeState(%d)", int(s))
	}
}

// PersistedTransaction 為歷史中保存的存款或提款。
type PersistedTransaction struct {
	Tx     TxID
	Client ClientID
	Kind   TxKind
	Amount money.Money
	State  DisputeState
}

// TransactionHistory 為只增不刪的交易表。
type TransactionHistory struct {
	txs map[TxID]*PersistedTransaction
}

// NewTransactionHistory 建立空白交易歷史。
func NewTransactionHistory() *TransactionHistory {
	return &TransactionHistory{txs: make(map[TxID]*PersistedTransaction)}
}

// Contains 回報交易 ID 是否已存在。
func (h *TransactionHistory) Contains(id TxID) bool {
	_, ok := h.txs[id]
	return ok
}

// Get 回傳交易的值拷貝，避免呼叫端繞過狀態轉移規則直接修改。
func (h *TransactionHistory) Get(id TxID) (PersistedTransaction, bool) {
	tx, ok := h.txs[id]
	if !ok {
		return PersistedTransaction{}, false
	}
	return *tx, true
}

// Len 回傳已保存交易筆數。
func (h *TransactionHistory) Len() int { return len(h.txs) }

// insert 新增交易；ID 重複回傳 ErrDuplicateTransaction。
func (h *TransactionHistory) insert(tx PersistedTransaction) error {
	if h.Contains(tx.Tx) {
		return fmt.Errorf("%w: tx %d", ErrDuplicateTransaction, tx.Tx)
	}
	cp := tx
	h.txs[tx.Tx] = &cp
	return nil
}

// eligible 查找 client 名下、狀態為 want 的交易。
// 不存在、客戶不符或狀態不符時回傳 false，呼叫端應略過該紀錄。
func (h *TransactionHistory) eligible(id TxID, client ClientID, want DisputeState) (PersistedTransaction, bool) {
	tx, ok := h.txs[id]
	if !ok || tx.Client != client || tx.State != want {
		return PersistedTransaction{}, false
	}
	return *tx, true
}

// transition 將交易由 from 狀態推進到 to；僅允許單向前進。
func (h *TransactionHistory) transition(id TxID, from, to DisputeState) error {
	tx, ok := h.txs[id]
	if !ok {
		return fmt.Errorf("%w: tx %d not in history", ErrInvariantViolation, id)
	}
	if tx.State != from || to <= from {
		return fmt.Errorf("%w: tx %d cannot move %s -> %s", ErrInvariantViolation, id, tx.State, to)
	}
	tx.State = to
	return nil
}
