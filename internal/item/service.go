// Package item はムードボードアイテムの管理機能を提供する。
package item

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/untld/untld/internal/colorname"
	"github.com/untld/untld/internal/metrics"
	"github.com/untld/untld/internal/model"
	"github.com/untld/untld/internal/repository"
)

// Classifier はコンテンツ分類のインターフェース。
// classify.ClassifierServiceを抽象化してテスタビリティを向上させる。
type Classifier interface {
	Classify(ctx context.Context, rawInput string) *model.ItemDraft
}

// ItemService はアイテムの作成・編集・一覧のサービス。
type ItemService struct {
	itemRepo   repository.ItemRepository
	folderRepo repository.FolderRepository
	classifier Classifier
	metrics    metrics.MetricsCollector
	maxItems   int
}

// NewItemService はItemServiceの新しいインスタンスを生成する。
// maxItemsが0以下の場合は上限チェックを行わない。
func NewItemService(
	itemRepo repository.ItemRepository,
	folderRepo repository.FolderRepository,
	classifier Classifier,
	collector metrics.MetricsCollector,
	maxItems int,
) *ItemService {
	return &ItemService{
		itemRepo:   itemRepo,
		folderRepo: folderRepo,
		classifier: classifier,
		metrics:    collector,
		maxItems:   maxItems,
	}
}

// AddItem は生入力を分類してアイテムとして保存する。
// 付随する取得処理（色名・メタデータ・パレット）の失敗は保存を妨げない。
// 唯一の拒否ケースはアイテム数上限（LimitExceeded）。
func (s *ItemService) AddItem(ctx context.Context, folderID, rawInput string) (*model.Item, error) {
	input := strings.TrimSpace(rawInput)
	if input == "" {
		return nil, model.NewInvalidInputError("入力が空です")
	}

	// フォルダ未指定の場合はデフォルトフォルダに保存する
	if folderID == "" {
		folderID = model.DefaultFolderID
	}

	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, model.NewFolderNotFoundError(folderID)
	}

	// アイテム数上限チェック
	if s.maxItems > 0 {
		count, err := s.itemRepo.CountAll(ctx)
		if err != nil {
			return nil, err
		}
		if count >= s.maxItems {
			return nil, model.NewLimitExceededError(s.maxItems)
		}
	}

	draft := s.classifier.Classify(ctx, input)

	now := time.Now()
	item := &model.Item{
		ID:        uuid.New().String(),
		FolderID:  folderID,
		Type:      draft.Type,
		Content:   draft.Content,
		Title:     draft.Title,
		Favicon:   draft.Favicon,
		ImageURL:  draft.ImageURL,
		ColorHex:  draft.ColorHex,
		ColorName: draft.ColorName,
		Palette:   draft.Palette,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.recordClassification(draft)
	return item, nil
}

// UpdateItemInput はアイテム更新の入力。nilのフィールドは変更しない。
type UpdateItemInput struct {
	Content  *string
	Title    *string
	FolderID *string
	Type     *model.ItemType
}

// UpdateItem はアイテムをユーザーの明示的な編集内容で更新する。
// 編集後の再分類は行わない（ユーザーの指定を優先する）。
func (s *ItemService) UpdateItem(ctx context.Context, itemID string, input UpdateItemInput) (*model.Item, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(itemID)
	}

	if input.FolderID != nil {
		folder, err := s.folderRepo.FindByID(ctx, *input.FolderID)
		if err != nil {
			return nil, err
		}
		if folder == nil {
			return nil, model.NewFolderNotFoundError(*input.FolderID)
		}
		item.FolderID = *input.FolderID
	}

	if input.Type != nil {
		if !model.ValidItemTypes[*input.Type] {
			return nil, model.NewInvalidInputError("無効なアイテム種別です: " + string(*input.Type))
		}
		item.Type = *input.Type
	}

	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return nil, model.NewInvalidInputError("コンテンツが空です")
		}
		item.Content = content
	}

	if input.Title != nil {
		item.Title = strings.TrimSpace(*input.Title)
	}

	item.UpdatedAt = time.Now()

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem はアイテムを削除する。
func (s *ItemService) DeleteItem(ctx context.Context, itemID string) error {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return model.NewItemNotFoundError(itemID)
	}
	return s.itemRepo.DeleteByID(ctx, itemID)
}

// ListItems はフォルダ内のアイテム一覧を作成日時降順で返す。
// itemTypeが空でない場合はその種別に絞り込む。
func (s *ItemService) ListItems(ctx context.Context, folderID string, itemType model.ItemType) ([]*model.Item, error) {
	if itemType != "" && !model.ValidItemTypes[itemType] {
		return nil, model.NewInvalidInputError("無効なアイテム種別です: " + string(itemType))
	}

	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, model.NewFolderNotFoundError(folderID)
	}

	return s.itemRepo.ListByFolder(ctx, folderID, itemType)
}

// ListItemsGrouped はフォルダ内のアイテムを表示セクション別に分けて返す。
func (s *ItemService) ListItemsGrouped(ctx context.Context, folderID string) (*model.GroupedItems, error) {
	items, err := s.ListItems(ctx, folderID, "")
	if err != nil {
		return nil, err
	}

	grouped := &model.GroupedItems{}
	for _, item := range items {
		switch item.Type {
		case model.ItemTypeText:
			grouped.Texts = append(grouped.Texts, item)
		case model.ItemTypeColor:
			grouped.Colors = append(grouped.Colors, item)
		case model.ItemTypeLink:
			grouped.Links = append(grouped.Links, item)
		case model.ItemTypeImage:
			grouped.Images = append(grouped.Images, item)
		case model.ItemTypeFont:
			grouped.Fonts = append(grouped.Fonts, item)
		}
	}
	return grouped, nil
}

// recordClassification は分類結果のメトリクスを記録する。
func (s *ItemService) recordClassification(draft *model.ItemDraft) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordItemClassified(string(draft.Type))

	switch draft.Type {
	case model.ItemTypeImage:
		s.metrics.RecordPaletteExtraction(len(draft.Palette) > 0)
	case model.ItemTypeColor:
		if draft.ColorName == colorname.UnnamedColor {
			s.metrics.RecordColorNameFallback()
		}
	}
}
