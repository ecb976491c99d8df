// cmd/ledger/main.go

// ledger 讀取交易 CSV，依序套用到帳本後，將各客戶最終帳戶表輸出到 stdout。
//
//	ledger transactions.csv > accounts.csv
//
// 診斷日誌寫到 stderr；單筆紀錄錯誤不影響結束碼，只有 I/O 或設定錯誤才會失敗。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"payments/internal/config"
	"payments/internal/csvio"
	"payments/internal/ledger"
	"payments/internal/logging"
	"payments/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	_ = config.LoadEnvFiles()
	cfg := config.Load()

	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.ReportJSONPath, "report-json", cfg.ReportJSONPath, "also write the report as JSON to this `path`")
	fs.StringVar(&cfg.ReportSQLitePath, "report-sqlite", cfg.ReportSQLitePath, "also write the report into this SQLite `path`")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log `level` (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: ledger [flags] <transactions.csv>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	if err := process(fs.Arg(0), cfg, logger, stdout); err != nil {
		logger.Error("ledger failed", zap.Error(err))
		return 1
	}
	return 0
}

func process(path string, cfg config.Config, logger *zap.Logger, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	e := ledger.NewEngine(ledger.WithLogger(logger))
	stats, err := ledger.Run(csvio.NewReader(f), e)
	if err != nil {
		return fmt.Errorf("process %s: %w", path, err)
	}
	accounts, err := e.Snapshot()
	if err != nil {
		return err
	}
	logger.Info("transactions processed",
		zap.String("input", path),
		zap.Int("applied", stats.Applied),
		zap.Int("ignored", stats.Ignored),
		zap.Int("rejected", stats.Rejected),
		zap.Int("fatal", stats.Fatal),
	)

	if err := csvio.NewWriter(out).WriteAccounts(accounts); err != nil {
		return err
	}

	exporter, err := storage.NewExporter(cfg.ReportJSONPath, cfg.ReportSQLitePath)
	if err != nil {
		return err
	}
	defer func() { _ = exporter.Close() }()
	if exporter.Enabled() {
		logger.Debug("exporting report", zap.Strings("targets", exporter.Targets()))
	}
	return exporter.Export(context.Background(), storage.FromAccounts(accounts, stats))
}
