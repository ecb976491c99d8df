// cmd/server/main.go

// 本服務提供交易批次處理的 HTTP API：上傳交易 CSV，回傳各客戶最終帳戶表。
// 此檔案負責初始化模組（config, logging, metrics, storage, server），
// 並啟動 HTTP 伺服器；收到 SIGINT/SIGTERM 時優雅關閉。

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"payments/internal/config"
	"payments/internal/logging"
	"payments/internal/metrics"
	"payments/internal/server"
	"payments/internal/storage"
)

func main() {
	// .env 為可選
	envErr := config.LoadEnvFiles()
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Debug("no .env file loaded, relying on environment", zap.Error(envErr))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exporter, err := storage.NewExporter(cfg.ReportJSONPath, cfg.ReportSQLitePath)
	if err != nil {
		logger.Fatal("init report exporter", zap.Error(err))
	}
	defer func() { _ = exporter.Close() }()

	// persist 函式：將每批次的報表寫到設定的輸出目標
	var persist func(storage.Snapshot) error
	if exporter.Enabled() {
		logger.Info("report export enabled", zap.Strings("targets", exporter.Targets()))
		persist = func(snap storage.Snapshot) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return exporter.Export(ctx, snap)
		}
	}

	s := server.NewServer(server.Options{
		Logger:         logger,
		Metrics:        metrics.NewRecorder(reg),
		Gatherer:       reg,
		Persist:        persist,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 背景 goroutine 監聽 SIGINT/SIGTERM，處理中的請求完成後再結束
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("ledger server running", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}
}
