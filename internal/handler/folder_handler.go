package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/untld/untld/internal/folder"
	"github.com/untld/untld/internal/middleware"
	"github.com/untld/untld/internal/model"
)

// FolderServiceInterface はフォルダハンドラーが必要とするサービスインターフェース。
type FolderServiceInterface interface {
	// CreateFolder はフォルダを作成する。色未指定の場合は候補色からランダムに選ぶ。
	CreateFolder(ctx context.Context, name, color string) (*model.Folder, error)
	// GetFolder はフォルダを取得する。
	GetFolder(ctx context.Context, folderID string) (*model.Folder, error)
	// ListFolders は全フォルダをアイテム数付きで返す。
	ListFolders(ctx context.Context) ([]model.FolderWithCount, error)
	// UpdateFolder はフォルダの名前とアクセントカラーを更新する。
	UpdateFolder(ctx context.Context, folderID string, input folder.UpdateFolderInput) (*model.Folder, error)
	// DeleteFolder はフォルダを削除し、所属アイテムをデフォルトフォルダに退避する。
	DeleteFolder(ctx context.Context, folderID string) error
	// GenerateMagicPalette はフォルダ内の全画像アイテムからマジックパレットを生成・保存する。
	GenerateMagicPalette(ctx context.Context, folderID string) ([]string, error)
}

// FolderHandler はフォルダ管理のHTTPハンドラー。
type FolderHandler struct {
	service FolderServiceInterface
}

// NewFolderHandler はFolderHandlerを生成する。
func NewFolderHandler(service FolderServiceInterface) *FolderHandler {
	return &FolderHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// createFolderRequest はフォルダ作成リクエストのボディ。
type createFolderRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// updateFolderRequest はフォルダ更新リクエストのボディ。nilのフィールドは変更しない。
type updateFolderRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// folderResponse はフォルダのAPIレスポンス。
type folderResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	MagicPalette []string  `json:"magic_palette,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// folderWithCountResponse はアイテム数付きフォルダのAPIレスポンス。
type folderWithCountResponse struct {
	folderResponse
	ItemCount int `json:"item_count"`
}

// folderListResponse はフォルダ一覧のレスポンス。
type folderListResponse struct {
	Folders []folderWithCountResponse `json:"folders"`
}

// magicPaletteResponse はマジックパレット生成のレスポンス。
type magicPaletteResponse struct {
	MagicPalette []string `json:"magic_palette"`
}

// CreateFolder はフォルダを作成する。
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	created, err := h.service.CreateFolder(r.Context(), req.Name, req.Color)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFolderResponse(created))
}

// GetFolder はフォルダ詳細を取得する。
// GET /api/folders/:id
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "id")

	f, err := h.service.GetFolder(r.Context(), folderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFolderResponse(f))
}

// ListFolders は全フォルダをアイテム数付きで取得する。
// GET /api/folders
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.service.ListFolders(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := folderListResponse{Folders: make([]folderWithCountResponse, 0, len(folders))}
	for _, f := range folders {
		resp.Folders = append(resp.Folders, folderWithCountResponse{
			folderResponse: toFolderResponse(&f.Folder),
			ItemCount:      f.ItemCount,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// UpdateFolder はフォルダを部分更新する。
// PATCH /api/folders/:id
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "id")

	var req updateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	updated, err := h.service.UpdateFolder(r.Context(), folderID, folder.UpdateFolderInput{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFolderResponse(updated))
}

// DeleteFolder はフォルダを削除する。
// DELETE /api/folders/:id
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "id")

	if err := h.service.DeleteFolder(r.Context(), folderID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateMagicPalette はフォルダのマジックパレットを再生成する。
// 集計結果が空の場合は204を返し、既存のマジックパレットは変更されない。
// POST /api/folders/:id/magic-palette
func (h *FolderHandler) GenerateMagicPalette(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "id")

	palette, err := h.service.GenerateMagicPalette(r.Context(), folderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if len(palette) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(magicPaletteResponse{MagicPalette: palette})
}

// toFolderResponse はmodel.FolderからAPIレスポンスに変換する。
func toFolderResponse(f *model.Folder) folderResponse {
	return folderResponse{
		ID:           f.ID,
		Name:         f.Name,
		Color:        f.Color,
		MagicPalette: f.MagicPalette,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}
