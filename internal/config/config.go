package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Fetch（メタデータ取得・画像取得の共通設定）
	FetchTimeout time.Duration
	FetchMaxSize int64

	// Palette（経験的に選ばれたデフォルト値。チューニング可能なパラメータとして公開する）
	PaletteSampleSize int // 抽出前に縮小する正方形の一辺（px）
	PaletteQuantStep  int // チャンネル量子化の刻み幅
	PaletteMaxColors  int // パレットの最大色数
	MagicCloseness    int // 近似色判定のRGBユークリッド距離（この値未満で同一グループ）

	// Item
	MaxItems int // アイテム総数の上限

	// Backfill（ワーカーモードのパレット補完）
	BackfillInterval      time.Duration
	BackfillBatchSize     int
	BackfillMaxConcurrent int

	// External services
	ColorAPIEndpoint  string // カラー命名サービスのエンドポイント
	FaviconServiceURL string // ドメインからfaviconを引くサービス（%sにホスト名が入る）

	// Rate Limit（req/min単位）
	RateLimitGeneral    int
	RateLimitItemCreate int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 10*1024*1024)
	cfg.PaletteSampleSize = getEnvInt("PALETTE_SAMPLE_SIZE", 50)
	cfg.PaletteQuantStep = getEnvInt("PALETTE_QUANT_STEP", 10)
	cfg.PaletteMaxColors = getEnvInt("PALETTE_MAX_COLORS", 5)
	cfg.MagicCloseness = getEnvInt("MAGIC_CLOSENESS", 45)
	cfg.MaxItems = getEnvInt("MAX_ITEMS", 100)
	cfg.BackfillInterval = getEnvDuration("BACKFILL_INTERVAL", 15*time.Minute)
	cfg.BackfillBatchSize = getEnvInt("BACKFILL_BATCH_SIZE", 50)
	cfg.BackfillMaxConcurrent = getEnvInt("BACKFILL_MAX_CONCURRENT", 4)
	cfg.ColorAPIEndpoint = getEnvString("COLOR_API_ENDPOINT", "https://www.thecolorapi.com/id")
	cfg.FaviconServiceURL = getEnvString("FAVICON_SERVICE_URL", "https://www.google.com/s2/favicons?domain=%s&sz=64")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitItemCreate = getEnvInt("RATE_LIMIT_ITEM_CREATE", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
