// internal/ledger/engine_test.go
//
// Engine 狀態機的單元測試。
// 涵蓋存提款、爭議流程（dispute / resolve / chargeback）、凍結帳戶、
// 無效引用與致命錯誤；全部於記憶體中執行。

package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments/internal/money"
)

func amt(s string) money.Money { return money.MustParse(s) }

// apply 依序套用紀錄，並要求每筆結果符合 want。
func apply(t *testing.T, e *Engine, want Outcome, recs ...Record) {
	t.Helper()
	for _, r := range recs {
		got, err := e.Apply(r)
		if want == OutcomeRejected {
			require.Error(t, err, "%T %+v", r, r)
		} else {
			require.NoError(t, err, "%T %+v", r, r)
		}
		require.Equal(t, want, got, "%T %+v", r, r)
	}
}

// account 取出帳戶並確認存在。
func account(t *testing.T, e *Engine, id ClientID) ClientAccount {
	t.Helper()
	a, ok := e.Accounts().Get(id)
	require.True(t, ok, "client %d should exist", id)
	return a
}

func assertBalances(t *testing.T, e *Engine, id ClientID, available, held, total string, locked bool) {
	t.Helper()
	a := account(t, e, id)
	tot, err := a.Total()
	require.NoError(t, err)
	assert.Equal(t, available, a.Available.String(), "available")
	assert.Equal(t, held, a.Held.String(), "held")
	assert.Equal(t, total, tot.String(), "total")
	assert.Equal(t, locked, a.Locked, "locked")
}

func TestDepositsAndWithdrawal(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5.0")},
		Deposit{Client: 1, Tx: 2, Amount: amt("3.0")},
		Withdrawal{Client: 1, Tx: 3, Amount: amt("2.0")},
	)
	assertBalances(t, e, 1, "6.0000", "0.0000", "6.0000", false)
}

func TestDepositsSumExactly(t *testing.T) {
	e := NewEngine()
	amounts := []string{"0.0001", "1.1111", "2.2222", "1000", "0.5"}
	want := money.Zero
	for i, s := range amounts {
		apply(t, e, OutcomeApplied, Deposit{Client: 7, Tx: TxID(i + 1), Amount: amt(s)})
		var err error
		want, err = want.Add(amt(s))
		require.NoError(t, err)
	}
	a := account(t, e, 7)
	assert.True(t, want.Equal(a.Available))
	assert.True(t, a.Held.IsZero())
}

func TestOverWithdrawalLeavesStateUnchanged(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied, Deposit{Client: 1, Tx: 1, Amount: amt("5.0")})
	before := account(t, e, 1)

	_, err := e.Apply(Withdrawal{Client: 1, Tx: 2, Amount: amt("10.0")})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, before, account(t, e, 1))
	assert.False(t, e.History().Contains(2), "failed withdrawal must not be persisted")
	assertBalances(t, e, 1, "5.0000", "0.0000", "5.0000", false)
}

func TestDisputeHoldsFunds(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5.0")},
		Dispute{Client: 1, Tx: 1},
	)
	assertBalances(t, e, 1, "0.0000", "5.0000", "5.0000", false)

	tx, ok := e.History().Get(1)
	require.True(t, ok)
	assert.Equal(t, StateDisputed, tx.State)
}

func TestDisputeThenChargeback(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5.0")},
		Dispute{Client: 1, Tx: 1},
		Chargeback{Client: 1, Tx: 1},
	)
	assertBalances(t, e, 1, "0.0000", "0.0000", "0.0000", true)

	_, err := e.Apply(Deposit{Client: 1, Tx: 2, Amount: amt("1")})
	require.ErrorIs(t, err, ErrAccountLocked)
	_, err = e.Apply(Withdrawal{Client: 1, Tx: 3, Amount: amt("1")})
	require.ErrorIs(t, err, ErrAccountLocked)
	assertBalances(t, e, 1, "0.0000", "0.0000", "0.0000", true)

	tx, _ := e.History().Get(1)
	assert.Equal(t, StateChargedBack, tx.State)
}

func TestDisputeResolveRoundTrip(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 123, Tx: 999, Amount: amt("5")},
		Deposit{Client: 123, Tx: 256, Amount: amt("2")},
	)
	before := account(t, e, 123)

	apply(t, e, OutcomeApplied, Dispute{Client: 123, Tx: 256})
	assertBalances(t, e, 123, "5.0000", "2.0000", "7.0000", false)

	apply(t, e, OutcomeApplied, Resolve{Client: 123, Tx: 256})
	after := account(t, e, 123)
	assert.True(t, before.Available.Equal(after.Available))
	assert.True(t, before.Held.Equal(after.Held))

	// 已結案的交易不得再次爭議
	apply(t, e, OutcomeIgnored, Dispute{Client: 123, Tx: 256})
	assertBalances(t, e, 123, "7.0000", "0.0000", "7.0000", false)
}

func TestDisputeWithdrawalMovesAmountToHeld(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("10")},
		Withdrawal{Client: 1, Tx: 2, Amount: amt("4")},
		Dispute{Client: 1, Tx: 2},
	)
	assertBalances(t, e, 1, "2.0000", "4.0000", "6.0000", false)
}

func TestIneligibleReferencesAreIgnored(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		Deposit{Client: 2, Tx: 2, Amount: amt("3")},
	)
	snapBefore, err := e.Snapshot()
	require.NoError(t, err)

	apply(t, e, OutcomeIgnored,
		Dispute{Client: 1, Tx: 42},    // 不存在
		Dispute{Client: 2, Tx: 1},     // 客戶不符
		Resolve{Client: 1, Tx: 1},     // 尚未爭議
		Chargeback{Client: 1, Tx: 1},  // 尚未爭議
		Resolve{Client: 9, Tx: 77},    // 未知客戶與交易
		Chargeback{Client: 3, Tx: 99}, // 未知客戶與交易
	)

	snapAfter, err := e.Snapshot()
	require.NoError(t, err)
	require.Len(t, snapAfter, 4)
	assert.Equal(t, snapBefore, snapAfter[:2])
	// 被略過的紀錄仍會建立初始帳戶
	assertBalances(t, e, 9, "0.0000", "0.0000", "0.0000", false)
	assertBalances(t, e, 3, "0.0000", "0.0000", "0.0000", false)
}

func TestDoubleDisputeIgnored(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		Dispute{Client: 1, Tx: 1},
	)
	apply(t, e, OutcomeIgnored, Dispute{Client: 1, Tx: 1})
	assertBalances(t, e, 1, "0.0000", "5.0000", "5.0000", false)
}

func TestChargebackAfterResolveIgnored(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		Dispute{Client: 1, Tx: 1},
		Resolve{Client: 1, Tx: 1},
	)
	apply(t, e, OutcomeIgnored, Chargeback{Client: 1, Tx: 1})
	assertBalances(t, e, 1, "5.0000", "0.0000", "5.0000", false)
}

func TestPendingDisputeSettlesAfterLock(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		Deposit{Client: 1, Tx: 2, Amount: amt("3")},
		Dispute{Client: 1, Tx: 1},
		Dispute{Client: 1, Tx: 2},
		Chargeback{Client: 1, Tx: 1},
	)
	assertBalances(t, e, 1, "0.0000", "3.0000", "3.0000", true)

	apply(t, e, OutcomeApplied, Resolve{Client: 1, Tx: 2})
	assertBalances(t, e, 1, "3.0000", "0.0000", "3.0000", true)
}

func TestChargebackOfPendingDisputeOnLockedAccount(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		Deposit{Client: 1, Tx: 2, Amount: amt("3")},
		Dispute{Client: 1, Tx: 1},
		Dispute{Client: 1, Tx: 2},
		Chargeback{Client: 1, Tx: 1},
	)
	apply(t, e, OutcomeApplied, Chargeback{Client: 1, Tx: 2})
	assertBalances(t, e, 1, "0.0000", "0.0000", "0.0000", true)
	tx, _ := e.History().Get(2)
	assert.Equal(t, StateChargedBack, tx.State)
}

func TestDisputeOnLockedAccount(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		Deposit{Client: 1, Tx: 2, Amount: amt("3")},
		Dispute{Client: 1, Tx: 1},
		Chargeback{Client: 1, Tx: 1},
	)
	assertBalances(t, e, 1, "3.0000", "0.0000", "3.0000", true)

	// 凍結只擋存提款；既有交易仍可進入爭議並結案
	apply(t, e, OutcomeApplied, Dispute{Client: 1, Tx: 2})
	assertBalances(t, e, 1, "0.0000", "3.0000", "3.0000", true)
	apply(t, e, OutcomeApplied, Resolve{Client: 1, Tx: 2})
	assertBalances(t, e, 1, "3.0000", "0.0000", "3.0000", true)

	_, err := e.Apply(Deposit{Client: 1, Tx: 3, Amount: amt("1")})
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestFirstReferenceCreatesAccount(t *testing.T) {
	e := NewEngine()
	_, err := e.Apply(Withdrawal{Client: 2, Tx: 1, Amount: amt("5")})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	apply(t, e, OutcomeIgnored, Dispute{Client: 3, Tx: 99})
	_, err = e.Apply(Deposit{Client: 4, Tx: 2, Amount: money.Zero})
	require.ErrorIs(t, err, ErrValidation)

	snap, err := e.Snapshot()
	require.NoError(t, err)
	var order []ClientID
	for _, a := range snap {
		order = append(order, a.Client)
		assert.True(t, a.Total.IsZero())
		assert.False(t, a.Locked)
	}
	assert.Equal(t, []ClientID{2, 3, 4}, order)
	assert.Zero(t, e.History().Len())
}

func TestAmountValidation(t *testing.T) {
	e := NewEngine()
	for _, r := range []Record{
		Deposit{Client: 1, Tx: 1, Amount: money.Zero},
		Deposit{Client: 1, Tx: 2, Amount: amt("-1")},
		Withdrawal{Client: 1, Tx: 3, Amount: money.Zero},
		Withdrawal{Client: 1, Tx: 4, Amount: amt("-0.5")},
	} {
		out, err := e.Apply(r)
		assert.Equal(t, OutcomeRejected, out)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, 1, e.Accounts().Len())
	assertBalances(t, e, 1, "0.0000", "0.0000", "0.0000", false)
	assert.Equal(t, 0, e.History().Len())
}

func TestDuplicateTransaction(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied, Deposit{Client: 1, Tx: 1, Amount: amt("5")})

	_, err := e.Apply(Deposit{Client: 2, Tx: 1, Amount: amt("1")})
	require.ErrorIs(t, err, ErrDuplicateTransaction)
	_, err = e.Apply(Withdrawal{Client: 1, Tx: 1, Amount: amt("1")})
	require.ErrorIs(t, err, ErrDuplicateTransaction)

	assertBalances(t, e, 1, "5.0000", "0.0000", "5.0000", false)
	assertBalances(t, e, 2, "0.0000", "0.0000", "0.0000", false)
}

func TestDepositOverflowIsFatalButLocal(t *testing.T) {
	e := NewEngine()
	huge := money.FromMinorUnits(math.MaxInt64)
	apply(t, e, OutcomeApplied, Deposit{Client: 1, Tx: 1, Amount: huge})

	out, err := e.Apply(Deposit{Client: 1, Tx: 2, Amount: amt("1")})
	assert.Equal(t, OutcomeRejected, out)
	require.ErrorIs(t, err, ErrOverflow)
	assert.True(t, IsFatal(err))
	assert.False(t, e.History().Contains(2))

	// 其他客戶不受影響
	apply(t, e, OutcomeApplied, Deposit{Client: 2, Tx: 3, Amount: amt("1")})
}

func TestDepositOverflowOnDerivedTotal(t *testing.T) {
	e := NewEngine()
	half := money.FromMinorUnits(math.MaxInt64 / 2)
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: half},
		Dispute{Client: 1, Tx: 1},
		Deposit{Client: 1, Tx: 2, Amount: half},
	)
	_, err := e.Apply(Deposit{Client: 1, Tx: 3, Amount: amt("1")})
	require.ErrorIs(t, err, ErrOverflow)

	a := account(t, e, 1)
	_, err = a.Total()
	require.NoError(t, err)
}

func TestDisputeOfSpentDepositIsInvariantViolation(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		Withdrawal{Client: 1, Tx: 2, Amount: amt("5")},
	)
	out, err := e.Apply(Dispute{Client: 1, Tx: 1})
	assert.Equal(t, OutcomeRejected, out)
	require.ErrorIs(t, err, ErrInvariantViolation)
	assert.True(t, IsFatal(err))

	assertBalances(t, e, 1, "0.0000", "0.0000", "0.0000", false)
	tx, _ := e.History().Get(1)
	assert.Equal(t, StateNone, tx.State)
}

func TestTotalIsAvailablePlusHeld(t *testing.T) {
	e := NewEngine()
	recs := []Record{
		Deposit{Client: 1, Tx: 1, Amount: amt("10.1234")},
		Deposit{Client: 2, Tx: 2, Amount: amt("3")},
		Withdrawal{Client: 1, Tx: 3, Amount: amt("0.1234")},
		Dispute{Client: 1, Tx: 1},
		Dispute{Client: 2, Tx: 2},
		Resolve{Client: 2, Tx: 2},
		Withdrawal{Client: 2, Tx: 4, Amount: amt("1.5")},
		Chargeback{Client: 1, Tx: 1},
	}
	for _, r := range recs {
		_, _ = e.Apply(r)
		snap, err := e.Snapshot()
		require.NoError(t, err)
		for _, a := range snap {
			sum, err := a.Available.Add(a.Held)
			require.NoError(t, err)
			assert.True(t, sum.Equal(a.Total), "client %d", a.Client)
			assert.False(t, a.Available.IsNegative())
			assert.False(t, a.Held.IsNegative())
		}
	}
}

func TestSnapshotFirstSeenOrder(t *testing.T) {
	e := NewEngine()
	apply(t, e, OutcomeApplied,
		Deposit{Client: 3, Tx: 1, Amount: amt("1")},
		Deposit{Client: 1, Tx: 2, Amount: amt("1")},
		Deposit{Client: 2, Tx: 3, Amount: amt("1")},
		Deposit{Client: 3, Tx: 4, Amount: amt("1")},
	)
	snap, err := e.Snapshot()
	require.NoError(t, err)
	var order []ClientID
	for _, a := range snap {
		order = append(order, a.Client)
	}
	assert.Equal(t, []ClientID{3, 1, 2}, order)
}

func TestUnsupportedRecord(t *testing.T) {
	e := NewEngine()
	out, err := e.Apply(nil)
	assert.Equal(t, OutcomeRejected, out)
	require.ErrorIs(t, err, ErrValidation)
}

type countingObserver struct {
	byOutcome map[Outcome]int
}

func (c *countingObserver) Observe(_ string, o Outcome, _ error) { c.byOutcome[o]++ }

func TestObserverSeesEveryRecord(t *testing.T) {
	obs := &countingObserver{byOutcome: map[Outcome]int{}}
	e := NewEngine(WithObserver(obs))
	_, _ = e.Apply(Deposit{Client: 1, Tx: 1, Amount: amt("1")})
	_, _ = e.Apply(Dispute{Client: 1, Tx: 5})
	_, _ = e.Apply(Withdrawal{Client: 1, Tx: 2, Amount: amt("9")})

	assert.Equal(t, 1, obs.byOutcome[OutcomeApplied])
	assert.Equal(t, 1, obs.byOutcome[OutcomeIgnored])
	assert.Equal(t, 1, obs.byOutcome[OutcomeRejected])
}
