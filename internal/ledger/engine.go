// internal/ledger/engine.go
//
// Engine 為帳本狀態機：依輸入順序逐筆套用交易紀錄。
// 每個 Engine 自行擁有 AccountBook 與 TransactionHistory，沒有任何全域狀態；
// Engine 不支援併發呼叫，呼叫端須以單一 goroutine 依序餵入紀錄。
//
// 每筆紀錄的變更皆先在帳戶拷貝上計算，所有檢查式運算成功後才一次寫回，
// 因此任何錯誤都不會留下部分更新。

package ledger

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"payments/internal/money"
)

// Outcome 為單筆紀錄的處理結果。
type Outcome int

// 零值不代表任何結果。
const (
	// OutcomeApplied 代表紀錄已成功套用。
	OutcomeApplied Outcome = iota + 1
	// OutcomeIgnored 代表紀錄引用不存在或不符資格的交易，依規則靜默略過。
	OutcomeIgnored
	// OutcomeRejected 代表紀錄因錯誤被略過，錯誤另行回傳。
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Observer 接收每筆紀錄的處理結果，例如用於統計指標。
type Observer interface {
	Observe(kind string, outcome Outcome, err error)
}

type nopObserver struct{}

func (nopObserver) Observe(string, Outcome, error) {}

// Option 調整 Engine 設定。
type Option func(*Engine)

// WithLogger 設定診斷用 logger；預設不輸出。
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver 設定結果觀察者。
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// Engine 為帳本狀態機。
type Engine struct {
	history  *TransactionHistory
	book     *AccountBook
	logger   *zap.Logger
	observer Observer
}

// NewEngine 建立空白帳本。
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		history:  NewTransactionHistory(),
		book:     NewAccountBook(),
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// History 回傳交易歷史（唯讀用途）。
func (e *Engine) History() *TransactionHistory { return e.history }

// Accounts 回傳帳戶表（唯讀用途）。
func (e *Engine) Accounts() *AccountBook { return e.book }

// Snapshot 依客戶首次成功交易的順序回傳所有帳戶快照。
func (e *Engine) Snapshot() ([]AccountSnapshot, error) {
	return e.book.Snapshot()
}

// Apply 套用單筆紀錄。
// 紀錄引用的客戶若尚無帳戶，先建立初始帳戶。
// 成功回傳 OutcomeApplied；引用無效交易的爭議類紀錄回傳 OutcomeIgnored 與 nil；
// 其餘失敗回傳 OutcomeRejected 與對應的領域錯誤，餘額與交易歷史不變。
func (e *Engine) Apply(rec Record) (Outcome, error) {
	var (
		outcome Outcome
		err     error
	)
	if rec != nil {
		e.book.touch(rec.ClientID())
	}
	switch r := rec.(type) {
	case Deposit:
		outcome, err = e.deposit(r)
	case Withdrawal:
		outcome, err = e.withdraw(r)
	case Dispute:
		outcome, err = e.dispute(r)
	case Resolve:
		outcome, err = e.resolve(r)
	case Chargeback:
		outcome, err = e.chargeback(r)
	default:
		outcome, err = OutcomeRejected, fmt.Errorf("%w: unsupported record %T", ErrValidation, rec)
	}
	e.report(rec, outcome, err)
	return outcome, err
}

func (e *Engine) deposit(r Deposit) (Outcome, error) {
	if err := validateAmount(r.Amount); err != nil {
		return OutcomeRejected, err
	}
	if e.history.Contains(r.Tx) {
		return OutcomeRejected, fmt.Errorf("%w: tx %d", ErrDuplicateTransaction, r.Tx)
	}
	acct := e.book.peek(r.Client)
	if acct.Locked {
		return OutcomeRejected, fmt.Errorf("%w: client %d", ErrAccountLocked, r.Client)
	}

	available, err := acct.Available.Add(r.Amount)
	if err != nil {
		return OutcomeRejected, moneyErr("deposit", r.Tx, err)
	}
	// total 由 available + held 推導，存款時一併確認其可表示。
	if _, err := available.Add(acct.Held); err != nil {
		return OutcomeRejected, moneyErr("deposit", r.Tx, err)
	}
	acct.Available = available

	if err := e.history.insert(PersistedTransaction{
		Tx: r.Tx, Client: r.Client, Kind: KindDeposit, Amount: r.Amount, State: StateNone,
	}); err != nil {
		return OutcomeRejected, err
	}
	e.book.put(acct)
	return OutcomeApplied, nil
}

func (e *Engine) withdraw(r Withdrawal) (Outcome, error) {
	if err := validateAmount(r.Amount); err != nil {
		return OutcomeRejected, err
	}
	if e.history.Contains(r.Tx) {
		return OutcomeRejected, fmt.Errorf("%w: tx %d", ErrDuplicateTransaction, r.Tx)
	}
	acct := e.book.peek(r.Client)
	if acct.Locked {
		return OutcomeRejected, fmt.Errorf("%w: client %d", ErrAccountLocked, r.Client)
	}
	if acct.Available.Cmp(r.Amount) < 0 {
		return OutcomeRejected, fmt.Errorf("%w: client %d has %s, tx %d wants %s",
			ErrInsufficientFunds, r.Client, acct.Available, r.Tx, r.Amount)
	}

	available, err := acct.Available.SubNonNegative(r.Amount)
	if err != nil {
		return OutcomeRejected, moneyErr("withdrawal", r.Tx, err)
	}
	acct.Available = available

	if err := e.history.insert(PersistedTransaction{
		Tx: r.Tx, Client: r.Client, Kind: KindWithdrawal, Amount: r.Amount, State: StateNone,
	}); err != nil {
		return OutcomeRejected, err
	}
	e.book.put(acct)
	return OutcomeApplied, nil
}

func (e *Engine) dispute(r Dispute) (Outcome, error) {
	tx, ok := e.history.eligible(r.Tx, r.Client, StateNone)
	if !ok {
		return OutcomeIgnored, nil
	}
	acct := e.book.peek(r.Client)

	available, err := acct.Available.SubNonNegative(tx.Amount)
	if err != nil {
		return OutcomeRejected, moneyErr("dispute", r.Tx, err)
	}
	held, err := acct.Held.Add(tx.Amount)
	if err != nil {
		return OutcomeRejected, moneyErr("dispute", r.Tx, err)
	}
	if err := e.history.transition(r.Tx, StateNone, StateDisputed); err != nil {
		return OutcomeRejected, err
	}
	acct.Available, acct.Held = available, held
	e.book.put(acct)
	return OutcomeApplied, nil
}

// resolve 與 chargeback 不檢查帳戶是否凍結：凍結只禁止新的資金移動，
// 已在爭議中的交易仍可結案。
func (e *Engine) resolve(r Resolve) (Outcome, error) {
	tx, ok := e.history.eligible(r.Tx, r.Client, StateDisputed)
	if !ok {
		return OutcomeIgnored, nil
	}
	acct := e.book.peek(r.Client)

	held, err := acct.Held.SubNonNegative(tx.Amount)
	if err != nil {
		return OutcomeRejected, moneyErr("resolve", r.Tx, err)
	}
	available, err := acct.Available.Add(tx.Amount)
	if err != nil {
		return OutcomeRejected, moneyErr("resolve", r.Tx, err)
	}
	if err := e.history.transition(r.Tx, StateDisputed, StateResolved); err != nil {
		return OutcomeRejected, err
	}
	acct.Available, acct.Held = available, held
	e.book.put(acct)
	return OutcomeApplied, nil
}

func (e *Engine) chargeback(r Chargeback) (Outcome, error) {
	tx, ok := e.history.eligible(r.Tx, r.Client, StateDisputed)
	if !ok {
		return OutcomeIgnored, nil
	}
	acct := e.book.peek(r.Client)

	held, err := acct.Held.SubNonNegative(tx.Amount)
	if err != nil {
		return OutcomeRejected, moneyErr("chargeback", r.Tx, err)
	}
	if err := e.history.transition(r.Tx, StateDisputed, StateChargedBack); err != nil {
		return OutcomeRejected, err
	}
	acct.Held = held
	acct.Locked = true
	e.book.put(acct)
	return OutcomeApplied, nil
}

// moneyErr 將 money 套件的錯誤轉為帳本錯誤分類。
func moneyErr(op string, tx TxID, err error) error {
	if errors.Is(err, money.ErrNegative) {
		return fmt.Errorf("%w: %s tx %d: %v", ErrInvariantViolation, op, tx, err)
	}
	return fmt.Errorf("%w: %s tx %d: %v", ErrOverflow, op, tx, err)
}

func (e *Engine) report(rec Record, outcome Outcome, err error) {
	kind := "unknown"
	fields := make([]zap.Field, 0, 5)
	if rec != nil {
		kind = rec.Kind()
		fields = append(fields,
			zap.Uint16("client", uint16(rec.ClientID())),
			zap.Uint32("tx", uint32(rec.TxID())),
		)
	}
	fields = append(fields, zap.String("kind", kind))
	e.observer.Observe(kind, outcome, err)

	switch {
	case IsFatal(err):
		e.logger.Error("record failed", append(fields, zap.Error(err))...)
	case err != nil:
		e.logger.Debug("record rejected", append(fields, zap.Error(err))...)
	case outcome == OutcomeIgnored:
		e.logger.Debug("record ignored", fields...)
	}
}
