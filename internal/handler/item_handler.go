// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/untld/untld/internal/item"
	"github.com/untld/untld/internal/middleware"
	"github.com/untld/untld/internal/model"
)

// ItemServiceInterface はアイテムハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	// AddItem は生入力を分類してアイテムとして保存する。
	AddItem(ctx context.Context, folderID, rawInput string) (*model.Item, error)
	// UpdateItem はアイテムをユーザーの明示的な編集内容で更新する。
	UpdateItem(ctx context.Context, itemID string, input item.UpdateItemInput) (*model.Item, error)
	// DeleteItem はアイテムを削除する。
	DeleteItem(ctx context.Context, itemID string) error
	// ListItems はフォルダ内のアイテム一覧を種別フィルタ付きで返す。
	ListItems(ctx context.Context, folderID string, itemType model.ItemType) ([]*model.Item, error)
	// ListItemsGrouped はフォルダ内のアイテムを表示セクション別に分けて返す。
	ListItemsGrouped(ctx context.Context, folderID string) (*model.GroupedItems, error)
}

// ItemHandler はアイテム管理のHTTPハンドラー。
type ItemHandler struct {
	service ItemServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// createItemRequest はアイテム作成リクエストのボディ。
type createItemRequest struct {
	FolderID string `json:"folder_id"`
	Input    string `json:"input"`
}

// updateItemRequest はアイテム更新リクエストのボディ。nilのフィールドは変更しない。
type updateItemRequest struct {
	Content  *string `json:"content,omitempty"`
	Title    *string `json:"title,omitempty"`
	FolderID *string `json:"folder_id,omitempty"`
	Type     *string `json:"type,omitempty"`
}

// itemResponse はアイテムのAPIレスポンス。
type itemResponse struct {
	ID        string    `json:"id"`
	FolderID  string    `json:"folder_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Title     string    `json:"title,omitempty"`
	Favicon   string    `json:"favicon,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	ColorHex  string    `json:"color_hex,omitempty"`
	ColorName string    `json:"color_name,omitempty"`
	Palette   []string  `json:"palette,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// itemListResponse はアイテム一覧のレスポンス。
type itemListResponse struct {
	Items []itemResponse `json:"items"`
}

// groupedItemsResponse は表示セクション別アイテム一覧のレスポンス。
type groupedItemsResponse struct {
	Texts  []itemResponse `json:"texts"`
	Colors []itemResponse `json:"colors"`
	Links  []itemResponse `json:"links"`
	Images []itemResponse `json:"images"`
	Fonts  []itemResponse `json:"fonts"`
}

// CreateItem は生入力からアイテムを作成する。
// POST /api/items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	created, err := h.service.AddItem(r.Context(), req.FolderID, req.Input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toItemResponse(created))
}

// UpdateItem はアイテムを部分更新する。
// PATCH /api/items/:id
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	input := item.UpdateItemInput{
		Content:  req.Content,
		Title:    req.Title,
		FolderID: req.FolderID,
	}
	if req.Type != nil {
		itemType := model.ItemType(*req.Type)
		input.Type = &itemType
	}

	updated, err := h.service.UpdateItem(r.Context(), itemID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toItemResponse(updated))
}

// DeleteItem はアイテムを削除する。
// DELETE /api/items/:id
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	if err := h.service.DeleteItem(r.Context(), itemID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListFolderItems はフォルダ内のアイテム一覧を取得する。
// GET /api/folders/:id/items?type=xxx&grouped=true
func (h *ItemHandler) ListFolderItems(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "id")

	// grouped=true の場合はセクション別のグループ表示を返す
	if r.URL.Query().Get("grouped") == "true" {
		grouped, err := h.service.ListItemsGrouped(r.Context(), folderID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toGroupedItemsResponse(grouped))
		return
	}

	itemType := model.ItemType(r.URL.Query().Get("type"))

	items, err := h.service.ListItems(r.Context(), folderID, itemType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toItemListResponse(items))
}

// --- ヘルパー関数 ---

// toItemResponse はmodel.ItemからAPIレスポンスに変換する。
func toItemResponse(i *model.Item) itemResponse {
	return itemResponse{
		ID:        i.ID,
		FolderID:  i.FolderID,
		Type:      string(i.Type),
		Content:   i.Content,
		Title:     i.Title,
		Favicon:   i.Favicon,
		ImageURL:  i.ImageURL,
		ColorHex:  i.ColorHex,
		ColorName: i.ColorName,
		Palette:   i.Palette,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// toItemListResponse はアイテムスライスを一覧レスポンスに変換する。
// itemsが空でもJSONでは空配列になるよう初期化する。
func toItemListResponse(items []*model.Item) itemListResponse {
	resp := itemListResponse{Items: make([]itemResponse, 0, len(items))}
	for _, i := range items {
		resp.Items = append(resp.Items, toItemResponse(i))
	}
	return resp
}

// toGroupedItemsResponse はGroupedItemsをAPIレスポンスに変換する。
func toGroupedItemsResponse(g *model.GroupedItems) groupedItemsResponse {
	convert := func(items []*model.Item) []itemResponse {
		result := make([]itemResponse, 0, len(items))
		for _, i := range items {
			result = append(result, toItemResponse(i))
		}
		return result
	}
	return groupedItemsResponse{
		Texts:  convert(g.Texts),
		Colors: convert(g.Colors),
		Links:  convert(g.Links),
		Images: convert(g.Images),
		Fonts:  convert(g.Fonts),
	}
}

// invalidRequestBodyError はリクエストボディ解析失敗のエラーを生成する。
func invalidRequestBodyError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case model.ErrCodeItemNotFound, model.ErrCodeFolderNotFound:
		return http.StatusNotFound
	case model.ErrCodeLimitExceeded:
		return http.StatusConflict
	case model.ErrCodeDefaultFolderProtected:
		return http.StatusForbidden
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
