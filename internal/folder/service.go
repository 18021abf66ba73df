// Package folder はフォルダの管理機能を提供する。
package folder

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/untld/untld/internal/metrics"
	"github.com/untld/untld/internal/model"
	"github.com/untld/untld/internal/repository"
)

// MagicAggregator はマジックパレット集計のインターフェース。
// magic.AggregatorServiceを抽象化してテスタビリティを向上させる。
type MagicAggregator interface {
	Aggregate(ctx context.Context, folderID string, items []*model.Item) []string
}

// FolderService はフォルダの作成・編集・削除とマジックパレット生成のサービス。
type FolderService struct {
	folderRepo repository.FolderRepository
	itemRepo   repository.ItemRepository
	aggregator MagicAggregator
	metrics    metrics.MetricsCollector
}

// NewFolderService はFolderServiceの新しいインスタンスを生成する。
func NewFolderService(
	folderRepo repository.FolderRepository,
	itemRepo repository.ItemRepository,
	aggregator MagicAggregator,
	collector metrics.MetricsCollector,
) *FolderService {
	return &FolderService{
		folderRepo: folderRepo,
		itemRepo:   itemRepo,
		aggregator: aggregator,
		metrics:    collector,
	}
}

// CreateFolder はフォルダを作成する。
// アクセントカラー未指定の場合は候補色からランダムに選ぶ。
func (s *FolderService) CreateFolder(ctx context.Context, name, color string) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewInvalidInputError("フォルダ名が空です")
	}

	if color == "" {
		color = model.FolderColors[rand.Intn(len(model.FolderColors))]
	}

	now := time.Now()
	folder := &model.Folder{
		ID:        uuid.New().String(),
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// GetFolder はフォルダを取得する。
func (s *FolderService) GetFolder(ctx context.Context, folderID string) (*model.Folder, error) {
	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, model.NewFolderNotFoundError(folderID)
	}
	return folder, nil
}

// ListFolders は全フォルダをアイテム数付きで返す。
func (s *FolderService) ListFolders(ctx context.Context) ([]model.FolderWithCount, error) {
	return s.folderRepo.List(ctx)
}

// UpdateFolderInput はフォルダ更新の入力。nilのフィールドは変更しない。
type UpdateFolderInput struct {
	Name  *string
	Color *string
}

// UpdateFolder はフォルダの名前とアクセントカラーを更新する。
func (s *FolderService) UpdateFolder(ctx context.Context, folderID string, input UpdateFolderInput) (*model.Folder, error) {
	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, model.NewFolderNotFoundError(folderID)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, model.NewInvalidInputError("フォルダ名が空です")
		}
		folder.Name = name
	}

	if input.Color != nil && *input.Color != "" {
		folder.Color = *input.Color
	}

	folder.UpdatedAt = time.Now()

	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// DeleteFolder はフォルダを削除する。
// 所属アイテムは削除せず、デフォルトフォルダに退避する（アイテムを孤児にしない）。
// デフォルトフォルダ自体は削除できない。
func (s *FolderService) DeleteFolder(ctx context.Context, folderID string) error {
	if folderID == model.DefaultFolderID {
		return model.NewDefaultFolderProtectedError()
	}

	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return err
	}
	if folder == nil {
		return model.NewFolderNotFoundError(folderID)
	}

	// アイテム退避を先に行う。削除が失敗してもアイテムは失われない。
	if err := s.itemRepo.ReassignFolder(ctx, folderID, model.DefaultFolderID); err != nil {
		return err
	}

	return s.folderRepo.DeleteByID(ctx, folderID)
}

// GenerateMagicPalette はフォルダ内の全画像アイテムからマジックパレットを生成・保存する。
// 集計結果が空の場合は既存のマジックパレットを上書きしない（空パレットで潰さない）。
func (s *FolderService) GenerateMagicPalette(ctx context.Context, folderID string) ([]string, error) {
	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, model.NewFolderNotFoundError(folderID)
	}

	items, err := s.itemRepo.ListImagesByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	palette := s.aggregator.Aggregate(ctx, folderID, items)
	if len(palette) == 0 {
		return []string{}, nil
	}

	if err := s.folderRepo.UpdateMagicPalette(ctx, folderID, palette); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMagicPaletteGenerated()
	}
	return palette, nil
}
