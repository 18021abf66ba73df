// Package app はアプリケーションの初期化と起動モードの切り替えを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/untld/untld/internal/classify"
	"github.com/untld/untld/internal/colorname"
	"github.com/untld/untld/internal/config"
	"github.com/untld/untld/internal/database"
	"github.com/untld/untld/internal/folder"
	"github.com/untld/untld/internal/handler"
	"github.com/untld/untld/internal/item"
	"github.com/untld/untld/internal/logger"
	"github.com/untld/untld/internal/magic"
	"github.com/untld/untld/internal/metadata"
	"github.com/untld/untld/internal/metrics"
	"github.com/untld/untld/internal/middleware"
	"github.com/untld/untld/internal/palette"
	"github.com/untld/untld/internal/repository"
	"github.com/untld/untld/internal/security"
	"github.com/untld/untld/internal/worker/backfill"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	folderRepo := repository.NewPostgresFolderRepo(db)
	itemRepo := repository.NewPostgresItemRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. コンテンツ分類のコラボレーターの初期化
	extractor := palette.NewExtractor(palette.Options{
		SampleSize: cfg.PaletteSampleSize,
		QuantStep:  cfg.PaletteQuantStep,
	})
	paletteLoader := palette.NewLoader(
		ssrfGuard, extractor, cfg.PaletteMaxColors, cfg.FetchTimeout, cfg.FetchMaxSize,
	)
	metadataFetcher := metadata.NewFetcher(
		ssrfGuard, sanitizer, cfg.FaviconServiceURL, cfg.FetchTimeout, cfg.FetchMaxSize,
	)
	colorNameClient := colorname.NewClient(
		&http.Client{Timeout: cfg.FetchTimeout},
		slog.Default(),
		cfg.ColorAPIEndpoint,
	)
	classifier := classify.NewClassifier(paletteLoader, metadataFetcher, colorNameClient, sanitizer)

	// 6. ドメインサービスの初期化
	aggregator := magic.NewAggregator(
		paletteLoader, itemRepo, cfg.MagicCloseness, cfg.PaletteMaxColors,
	)
	itemService := item.NewItemService(itemRepo, folderRepo, classifier, collector, cfg.MaxItems)
	folderService := folder.NewFolderService(folderRepo, itemRepo, aggregator, collector)

	// 7. ルーターの構築
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ItemCreateRate = rate.Limit(float64(cfg.RateLimitItemCreate) / 60.0)
	rateLimiterCfg.ItemCreateBurst = cfg.RateLimitItemCreate

	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		Logger:            slog.Default(),
		StatusRecorder:    collector,

		ItemService:   itemService,
		FolderService: folderService,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はパレットバックフィルワーカーモードで起動する。
// DB接続を開き、バックフィルスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	itemRepo := repository.NewPostgresItemRepo(db)

	// 3. パレット抽出の初期化
	ssrfGuard := security.NewSSRFGuard()
	extractor := palette.NewExtractor(palette.Options{
		SampleSize: cfg.PaletteSampleSize,
		QuantStep:  cfg.PaletteQuantStep,
	})
	paletteLoader := palette.NewLoader(
		ssrfGuard, extractor, cfg.PaletteMaxColors, cfg.FetchTimeout, cfg.FetchMaxSize,
	)

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. スケジューラの初期化
	scheduler := backfill.NewScheduler(
		itemRepo, paletteLoader, slog.Default(), collector,
		cfg.BackfillBatchSize, cfg.BackfillMaxConcurrent,
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("backfill_interval", cfg.BackfillInterval),
		slog.Int("batch_size", cfg.BackfillBatchSize),
		slog.Int("max_concurrent", cfg.BackfillMaxConcurrent),
	)

	// バックフィルスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.BackfillInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
