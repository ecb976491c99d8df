// internal/ledger/record.go

// Package ledger 實作交易帳本的狀態機：存款、提款與爭議流程
// （dispute → resolve / chargeback）如何改變帳戶與交易歷史。
// 本套件不含任何 I/O；輸入紀錄由 csvio 等轉接層產生，最終帳戶快照交由輸出層處理。
package ledger

import (
	"fmt"

	"payments/internal/money"
)

// ClientID 為客戶識別碼（16 位元無號整數）。
type ClientID uint16

// TxID 為交易識別碼（32 位元無號整數），在存款與提款之間全域唯一。
type TxID uint32

// Record 為封閉的交易紀錄聯集：僅本套件定義的五種型別實作此介面。
// 新增種類時，Engine.Apply 的 type switch 必須一併補上處理分支。
type Record interface {
	ClientID() ClientID
	TxID() TxID
	Kind() string
	isRecord()
}

// Deposit 存款：增加可用餘額。
type Deposit struct {
	Client ClientID
	Tx     TxID
	Amount money.Money
}

// Withdrawal 提款：減少可用餘額，不得透支。
type Withdrawal struct {
	Client ClientID
	Tx     TxID
	Amount money.Money
}

// Dispute 對既有交易提出爭議，將其金額由可用轉為凍結。
type Dispute struct {
	Client ClientID
	Tx     TxID
}

// Resolve 結案爭議，凍結金額退回可用餘額。
type Resolve struct {
	Client ClientID
	Tx     TxID
}

// Chargeback 撤銷爭議交易，移除凍結金額並凍結帳戶。
type Chargeback struct {
	Client ClientID
	Tx     TxID
}

func (r Deposit) ClientID() ClientID    { return r.Client }
func (r Withdrawal) ClientID() ClientID { return r.Client }
func (r Dispute) ClientID() ClientID    { return r.Client }
func (r Resolve) ClientID() ClientID    { return r.Client }
func (r Chargeback) ClientID() ClientID { return r.Client }

func (r Deposit) TxID() TxID    { return r.Tx }
func (r Withdrawal) TxID() TxID { return r.Tx }
func (r Dispute) TxID() TxID    { return r.Tx }
func (r Resolve) TxID() TxID    { return r.Tx }
func (r Chargeback) TxID() TxID { return r.Tx }

func (Deposit) Kind() string    { return "deposit" }
func (Withdrawal) Kind() string { return "withdrawal" }
func (Dispute) Kind() string    { return "dispute" }
func (Resolve) Kind() string    { return "resolve" }
func (Chargeback) Kind() string { return "chargeback" }

func (Deposit) isRecord()    {}
func (Withdrawal) isRecord() {}
func (Dispute) isRecord()    {}
func (Resolve) isRecord()    {}
func (Chargeback) isRecord() {}

// validateAmount 檢查存提款金額：必須 > 0 且最多 4 位小數。
// Money 本身已保證有限值與精度；此處再確認正負。
func validateAmount(amount money.Money) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be > 0, got %s", ErrValidation, amount)
	}
	if !amount.Equal(amount.Round()) {
		return fmt.Errorf("%w: amount %s exceeds 4 decimal places", ErrValidation, amount.Decimal())
	}
	return nil
}
