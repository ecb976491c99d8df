// internal/server/router.go
//
// 本檔負責 HTTP 路由註冊，與 handler.go 分離：
//   - handler.go 定義「如何處理請求」
//   - router.go 定義「請求如何被導向」
//
// 使用 chi 註冊路由；未支援的方法由 chi 自動回傳 405。
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router 建立並回傳整個 HTTP 處理鏈。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// 健康檢查：可供監控或 liveness probe 使用。
	r.Get("/health", s.health)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// API v1：
	//   - POST /api/v1/batches           → 處理交易 CSV
	//   - GET  /api/v1/accounts          → 最近一次報表
	//   - GET  /api/v1/accounts/{client} → 單一帳戶
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/batches", s.processBatch)
		r.Get("/accounts", s.accounts)
		r.Get("/accounts/{client}", s.account)
	})

	return r
}
