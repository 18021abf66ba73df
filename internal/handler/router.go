package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/untld/untld/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder

	// サービス
	ItemService   ItemServiceInterface
	FolderService FolderServiceInterface

	// Prometheusメトリクスエンドポイント（nilの場合は公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → LoggingMiddleware → RecoveryMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))
	r.Use(middleware.NewRecoveryMiddleware())

	itemHandler := NewItemHandler(deps.ItemService)
	folderHandler := NewFolderHandler(deps.FolderService)

	// --- 運用系ルート（レート制限の対象外） ---

	r.Get("/health", handleHealth)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// アイテム管理
		r.Route("/api/items", func(r chi.Router) {
			// POST /api/items - アイテム作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.ItemCreationMiddleware()).Post("/", itemHandler.CreateItem)

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", itemHandler.UpdateItem)
				r.Delete("/", itemHandler.DeleteItem)
			})
		})

		// フォルダ管理
		r.Route("/api/folders", func(r chi.Router) {
			r.Get("/", folderHandler.ListFolders)
			r.Post("/", folderHandler.CreateFolder)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", folderHandler.GetFolder)
				r.Patch("/", folderHandler.UpdateFolder)
				r.Delete("/", folderHandler.DeleteFolder)

				// GET /api/folders/{id}/items - フォルダごとのアイテム一覧
				r.Get("/items", itemHandler.ListFolderItems)

				// POST /api/folders/{id}/magic-palette - マジックパレット再生成
				r.Post("/magic-palette", folderHandler.GenerateMagicPalette)
			})
		})
	})

	return r
}

// handleHealth はヘルスチェックエンドポイント。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
