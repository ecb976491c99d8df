// internal/config/config.go

// Package config 由環境變數（與可選的 .env 檔）載入執行設定。
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 為 CLI 與 HTTP 服務共用的設定。
type Config struct {
	HTTPAddr         string
	LogLevel         string
	LogDevelopment   bool
	ReportJSONPath   string // 空字串代表不輸出 JSON 報表
	ReportSQLitePath string // 空字串代表不輸出 SQLite 報表
	MaxUploadBytes   int64
}

// LoadEnvFiles 載入 .env 檔（可選）；找不到檔案時回傳錯誤，呼叫端可忽略。
func LoadEnvFiles(files ...string) error {
	return godotenv.Load(files...)
}

// Load 讀取目前環境變數並套用預設值。
func Load() Config {
	return Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogDevelopment:   getEnvBool("LOG_DEVELOPMENT", false),
		ReportJSONPath:   getEnv("REPORT_JSON_PATH", ""),
		ReportSQLitePath: getEnv("REPORT_SQLITE_PATH", ""),
		MaxUploadBytes:   getEnvInt64("MAX_UPLOAD_BYTES", 64<<20),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
