// internal/metrics/metrics_test.go

package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments/internal/ledger"
	"payments/internal/money"
)

func TestRecorderCountsEngineOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)
	e := ledger.NewEngine(ledger.WithObserver(rec))

	_, err := ledger.Run(ledger.NewSliceSource(
		ledger.Deposit{Client: 1, Tx: 1, Amount: money.MustParse("2")},
		ledger.Deposit{Client: 1, Tx: 1, Amount: money.MustParse("2")},
		ledger.Withdrawal{Client: 1, Tx: 2, Amount: money.MustParse("5")},
		ledger.Dispute{Client: 1, Tx: 99},
	), e)
	require.NoError(t, err)
	rec.BatchDone()

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.records.WithLabelValues("deposit", "applied", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.records.WithLabelValues("deposit", "rejected", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.records.WithLabelValues("withdrawal", "rejected", "insufficient_funds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.records.WithLabelValues("dispute", "ignored", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.batches))

	n, err := testutil.GatherAndCount(reg, "ledger_records_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "none", Reason(nil))
	assert.Equal(t, "overflow", Reason(fmt.Errorf("wrap: %w", ledger.ErrOverflow)))
	assert.Equal(t, "invariant", Reason(ledger.ErrInvariantViolation))
	assert.Equal(t, "locked", Reason(ledger.ErrAccountLocked))
	assert.Equal(t, "validation", Reason(ledger.ErrValidation))
	assert.Equal(t, "other", Reason(fmt.Errorf("boom")))
}
