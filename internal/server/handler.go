// internal/server/handler.go
//
// Package server
// ─────────────────────────────────────────────
// 提供 HTTP 介面，作為 ledger 模組的應用層 (Application Layer)。
// 每個上傳的 CSV 批次都由全新的 ledger.Engine 處理，請求之間不共享帳本狀態；
// Server 只保存「最近一次」的報表供查詢，並在處理成功後呼叫 persist hook。
//
// 分層：
//   - ledger：純狀態機，與 HTTP 無關。
//   - csvio：CSV 轉接。
//   - server：傳輸層。
//   - storage：報表輸出。
package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"payments/internal/csvio"
	"payments/internal/ledger"
	"payments/internal/metrics"
	"payments/internal/storage"
)

// DefaultMaxUploadBytes 為未設定時的上傳大小上限。
const DefaultMaxUploadBytes = 64 << 20

// Options 為 Server 的相依元件；除 Logger 外皆可為 nil。
type Options struct {
	Logger   *zap.Logger
	Metrics  *metrics.Recorder
	Gatherer prometheus.Gatherer
	// Persist 於每批次處理成功後呼叫，例如寫入 JSON / SQLite 報表。
	Persist        func(storage.Snapshot) error
	MaxUploadBytes int64
}

// Server 為 HTTP 層核心結構。
type Server struct {
	logger    *zap.Logger
	metrics   *metrics.Recorder
	gatherer  prometheus.Gatherer
	persist   func(storage.Snapshot) error
	maxUpload int64

	// commitMu 串行化 persist 與 last 的更新，確保輸出檔與 last 為同一份報表。
	commitMu sync.Mutex
	mu       sync.RWMutex
	last     *storage.Snapshot
}

// NewServer 建立新的 HTTP 伺服器。
func NewServer(opts Options) *Server {
	s := &Server{
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		persist:   opts.Persist,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	return s
}

// processBatch 處理：POST /batches，body 為交易 CSV。
// 回傳帳戶表：預設 text/csv，Accept 含 application/json 時回傳 JSON 報表。
func (s *Server) processBatch(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.maxUpload)

	opts := []ledger.Option{ledger.WithLogger(s.logger)}
	if s.metrics != nil {
		opts = append(opts, ledger.WithObserver(s.metrics))
	}
	e := ledger.NewEngine(opts...)

	stats, err := ledger.Run(csvio.NewReader(body), e)
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		s.logger.Warn("batch aborted", zap.Error(err), zap.Int("records", stats.Records()))
		writeErr(w, err, code)
		return
	}
	accounts, err := e.Snapshot()
	if err != nil {
		s.logger.Error("snapshot failed", zap.Error(err))
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	if s.metrics != nil {
		s.metrics.BatchDone()
	}

	report := storage.FromAccounts(accounts, stats)
	s.commit(report)

	s.logger.Info("batch processed",
		zap.Int("applied", stats.Applied),
		zap.Int("ignored", stats.Ignored),
		zap.Int("rejected", stats.Rejected),
		zap.Int("fatal", stats.Fatal),
		zap.Int("accounts", len(accounts)),
	)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, report)
	} else {
		writeCSV(w, http.StatusOK, accounts)
	}
}

// commit 持久化報表並更新 last；持久化失敗只記錄，不影響回應。
func (s *Server) commit(report storage.Snapshot) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if s.persist != nil {
		if err := s.persist(report); err != nil {
			s.logger.Error("persist report", zap.Error(err))
		}
	}
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
}

// accounts 處理：GET /accounts → 最近一次批次的報表。
func (s *Server) accounts(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lastReport()
	if !ok {
		writeErr(w, errNoReport, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// account 處理：GET /accounts/{client}。
func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "client"), 10, 16)
	if err != nil {
		writeErr(w, errBadClient, http.StatusBadRequest)
		return
	}
	report, ok := s.lastReport()
	if !ok {
		writeErr(w, errNoReport, http.StatusNotFound)
		return
	}
	for _, a := range report.Accounts {
		if a.Client == uint16(id) {
			writeJSON(w, http.StatusOK, a)
			return
		}
	}
	writeErr(w, errNoAccount, http.StatusNotFound)
}

// health 提供健康檢查端點：GET /health。
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) lastReport() (storage.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return storage.Snapshot{}, false
	}
	return *s.last, true
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

var (
	errNoReport  = errors.New("no batch processed yet")
	errNoAccount = errors.New("client not found in last batch")
	errBadClient = errors.New("client must be an integer in 0..65535")
)
