// internal/metrics/metrics.go

// Package metrics 以 Prometheus 計數器統計帳本處理結果。
// Recorder 實作 ledger.Observer，可直接注入 Engine。
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"payments/internal/ledger"
)

// Recorder 持有帳本相關的計數器。
type Recorder struct {
	records *prometheus.CounterVec
	batches prometheus.Counter
}

// NewRecorder 建立計數器並註冊到 reg；reg 為 nil 時使用獨立的新 registry。
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "records_total",
			Help:      "Transaction records processed, by kind, outcome and error reason.",
		}, []string{"kind", "outcome", "reason"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "batches_total",
			Help:      "Transaction streams processed to completion.",
		}),
	}
	reg.MustRegister(r.records, r.batches)
	return r
}

// Observe 實作 ledger.Observer。
func (r *Recorder) Observe(kind string, outcome ledger.Outcome, err error) {
	r.records.WithLabelValues(kind, outcome.String(), Reason(err)).Inc()
}

// BatchDone 記錄一批輸入處理完成。
func (r *Recorder) BatchDone() { r.batches.Inc() }

// Reason 將錯誤轉為低基數的標籤值。
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ledger.ErrValidation):
		return "validation"
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return "duplicate"
	case errors.Is(err, ledger.ErrAccountLocked):
		return "locked"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrOverflow):
		return "overflow"
	case errors.Is(err, ledger.ErrInvariantViolation):
		return "invariant"
	default:
		return "other"
	}
}
