package folder

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/untld/untld/internal/model"
)

// --- テスト用モック ---

// mockFolderRepo はテスト用のFolderRepositoryモック。
type mockFolderRepo struct {
	folders map[string]*model.Folder

	updateMagicPaletteFn func(ctx context.Context, folderID string, palette []string) error
}

func newMockFolderRepo() *mockFolderRepo {
	return &mockFolderRepo{
		folders: map[string]*model.Folder{
			model.DefaultFolderID: {ID: model.DefaultFolderID, Name: model.DefaultFolderName},
		},
	}
}

func (m *mockFolderRepo) FindByID(ctx context.Context, id string) (*model.Folder, error) {
	folder, ok := m.folders[id]
	if !ok {
		return nil, nil
	}
	return folder, nil
}

func (m *mockFolderRepo) List(ctx context.Context) ([]model.FolderWithCount, error) {
	var result []model.FolderWithCount
	for _, folder := range m.folders {
		result = append(result, model.FolderWithCount{Folder: *folder})
	}
	return result, nil
}

func (m *mockFolderRepo) Create(ctx context.Context, folder *model.Folder) error {
	m.folders[folder.ID] = folder
	return nil
}

func (m *mockFolderRepo) Update(ctx context.Context, folder *model.Folder) error {
	m.folders[folder.ID] = folder
	return nil
}

func (m *mockFolderRepo) UpdateMagicPalette(ctx context.Context, folderID string, palette []string) error {
	if m.updateMagicPaletteFn != nil {
		return m.updateMagicPaletteFn(ctx, folderID, palette)
	}
	if folder, ok := m.folders[folderID]; ok {
		folder.MagicPalette = palette
	}
	return nil
}

func (m *mockFolderRepo) DeleteByID(ctx context.Context, id string) error {
	delete(m.folders, id)
	return nil
}

// mockItemRepo はテスト用のItemRepositoryモック（フォルダサービスが使う操作のみ実装）。
type mockItemRepo struct {
	items map[string]*model.Item

	listImagesByFolderFn func(ctx context.Context, folderID string) ([]*model.Item, error)
	reassignFolderFn     func(ctx context.Context, fromFolderID, toFolderID string) error
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: make(map[string]*model.Item)}
}

func (m *mockItemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return item, nil
}

func (m *mockItemRepo) Create(ctx context.Context, item *model.Item) error {
	m.items[item.ID] = item
	return nil
}

func (m *mockItemRepo) Update(ctx context.Context, item *model.Item) error {
	m.items[item.ID] = item
	return nil
}

func (m *mockItemRepo) UpdatePalette(ctx context.Context, itemID string, palette []string) error {
	if item, ok := m.items[itemID]; ok {
		item.Palette = palette
	}
	return nil
}

func (m *mockItemRepo) DeleteByID(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *mockItemRepo) ListByFolder(ctx context.Context, folderID string, itemType model.ItemType) ([]*model.Item, error) {
	var result []*model.Item
	for _, item := range m.items {
		if item.FolderID == folderID && (itemType == "" || item.Type == itemType) {
			result = append(result, item)
		}
	}
	return result, nil
}

func (m *mockItemRepo) ListImagesByFolder(ctx context.Context, folderID string) ([]*model.Item, error) {
	if m.listImagesByFolderFn != nil {
		return m.listImagesByFolderFn(ctx, folderID)
	}
	return m.ListByFolder(ctx, folderID, model.ItemTypeImage)
}

func (m *mockItemRepo) ListImagesMissingPalette(ctx context.Context, limit int) ([]*model.Item, error) {
	return nil, nil
}

func (m *mockItemRepo) CountAll(ctx context.Context) (int, error) {
	return len(m.items), nil
}

func (m *mockItemRepo) ReassignFolder(ctx context.Context, fromFolderID, toFolderID string) error {
	if m.reassignFolderFn != nil {
		return m.reassignFolderFn(ctx, fromFolderID, toFolderID)
	}
	for _, item := range m.items {
		if item.FolderID == fromFolderID {
			item.FolderID = toFolderID
		}
	}
	return nil
}

// mockAggregator はテスト用のMagicAggregatorモック。
type mockAggregator struct {
	aggregateFn func(ctx context.Context, folderID string, items []*model.Item) []string
}

func (m *mockAggregator) Aggregate(ctx context.Context, folderID string, items []*model.Item) []string {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, folderID, items)
	}
	return []string{}
}

func newTestService(folderRepo *mockFolderRepo, itemRepo *mockItemRepo, aggregator *mockAggregator) *FolderService {
	return NewFolderService(folderRepo, itemRepo, aggregator, nil)
}

// assertAPIErrorCode はエラーが指定コードのAPIErrorであることを検証するヘルパー。
func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected APIError with code %s, got nil", wantCode)
	}
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %s, want %s", apiErr.Code, wantCode)
	}
}

// --- CreateFolder テスト ---

// TestFolderService_CreateFolder_Success はフォルダが作成されることをテストする。
func TestFolderService_CreateFolder_Success(t *testing.T) {
	folderRepo := newMockFolderRepo()
	svc := newTestService(folderRepo, newMockItemRepo(), &mockAggregator{})

	folder, err := svc.CreateFolder(context.Background(), "インスピレーション", "#3b82f6")
	if err != nil {
		t.Fatalf("CreateFolder returned error: %v", err)
	}

	if folder.ID == "" {
		t.Error("expected generated folder ID")
	}
	if folder.Name != "インスピレーション" {
		t.Errorf("name = %q, want 'インスピレーション'", folder.Name)
	}
	if folder.Color != "#3b82f6" {
		t.Errorf("color = %q, want '#3b82f6'", folder.Color)
	}
	if _, ok := folderRepo.folders[folder.ID]; !ok {
		t.Error("expected folder to be persisted")
	}
}

// TestFolderService_CreateFolder_RandomColor は色未指定時に候補色から選ばれることをテストする。
func TestFolderService_CreateFolder_RandomColor(t *testing.T) {
	svc := newTestService(newMockFolderRepo(), newMockItemRepo(), &mockAggregator{})

	folder, err := svc.CreateFolder(context.Background(), "新規", "")
	if err != nil {
		t.Fatalf("CreateFolder returned error: %v", err)
	}

	found := false
	for _, c := range model.FolderColors {
		if folder.Color == c {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("color %q is not one of the folder color candidates", folder.Color)
	}
}

// TestFolderService_CreateFolder_EmptyName は空のフォルダ名が拒否されることをテストする。
func TestFolderService_CreateFolder_EmptyName(t *testing.T) {
	svc := newTestService(newMockFolderRepo(), newMockItemRepo(), &mockAggregator{})

	_, err := svc.CreateFolder(context.Background(), "   ", "")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidInput)
}

// --- UpdateFolder テスト ---

// TestFolderService_UpdateFolder_Success は名前と色が更新されることをテストする。
func TestFolderService_UpdateFolder_Success(t *testing.T) {
	folderRepo := newMockFolderRepo()
	folderRepo.folders["folder-1"] = &model.Folder{ID: "folder-1", Name: "旧名", Color: "#22c55e"}
	svc := newTestService(folderRepo, newMockItemRepo(), &mockAggregator{})

	name := "新名"
	color := "#ef4444"
	folder, err := svc.UpdateFolder(context.Background(), "folder-1", UpdateFolderInput{Name: &name, Color: &color})
	if err != nil {
		t.Fatalf("UpdateFolder returned error: %v", err)
	}

	if folder.Name != "新名" || folder.Color != "#ef4444" {
		t.Errorf("folder = %+v, want updated name and color", folder)
	}
}

// TestFolderService_UpdateFolder_NotFound は存在しないフォルダでエラーを返すことをテストする。
func TestFolderService_UpdateFolder_NotFound(t *testing.T) {
	svc := newTestService(newMockFolderRepo(), newMockItemRepo(), &mockAggregator{})

	_, err := svc.UpdateFolder(context.Background(), "no-such-folder", UpdateFolderInput{})
	assertAPIErrorCode(t, err, model.ErrCodeFolderNotFound)
}

// --- DeleteFolder テスト ---

// TestFolderService_DeleteFolder_ReassignsItems は削除時にアイテムがデフォルトフォルダに
// 退避されることをテストする。
func TestFolderService_DeleteFolder_ReassignsItems(t *testing.T) {
	folderRepo := newMockFolderRepo()
	folderRepo.folders["folder-1"] = &model.Folder{ID: "folder-1", Name: "削除対象"}
	itemRepo := newMockItemRepo()
	itemRepo.items["item-1"] = &model.Item{ID: "item-1", FolderID: "folder-1", Type: model.ItemTypeText}
	svc := newTestService(folderRepo, itemRepo, &mockAggregator{})

	if err := svc.DeleteFolder(context.Background(), "folder-1"); err != nil {
		t.Fatalf("DeleteFolder returned error: %v", err)
	}

	if _, ok := folderRepo.folders["folder-1"]; ok {
		t.Error("expected folder to be deleted")
	}
	// アイテムは削除されず退避される（孤児にしない）
	if itemRepo.items["item-1"].FolderID != model.DefaultFolderID {
		t.Errorf("item folderID = %q, want %q", itemRepo.items["item-1"].FolderID, model.DefaultFolderID)
	}
}

// TestFolderService_DeleteFolder_DefaultProtected はデフォルトフォルダの削除が
// 拒否されることをテストする。
func TestFolderService_DeleteFolder_DefaultProtected(t *testing.T) {
	svc := newTestService(newMockFolderRepo(), newMockItemRepo(), &mockAggregator{})

	err := svc.DeleteFolder(context.Background(), model.DefaultFolderID)
	assertAPIErrorCode(t, err, model.ErrCodeDefaultFolderProtected)
}

// TestFolderService_DeleteFolder_ReassignFailureAborts は退避失敗時にフォルダ削除を
// 行わないことをテストする。
func TestFolderService_DeleteFolder_ReassignFailureAborts(t *testing.T) {
	folderRepo := newMockFolderRepo()
	folderRepo.folders["folder-1"] = &model.Folder{ID: "folder-1", Name: "削除対象"}
	itemRepo := newMockItemRepo()
	itemRepo.reassignFolderFn = func(ctx context.Context, fromFolderID, toFolderID string) error {
		return fmt.Errorf("db unavailable")
	}
	svc := newTestService(folderRepo, itemRepo, &mockAggregator{})

	if err := svc.DeleteFolder(context.Background(), "folder-1"); err == nil {
		t.Fatal("expected reassign error to propagate")
	}
	if _, ok := folderRepo.folders["folder-1"]; !ok {
		t.Error("expected folder to survive when reassign fails")
	}
}

// --- GenerateMagicPalette テスト ---

// TestFolderService_GenerateMagicPalette_Persists は生成結果がフォルダに保存されることをテストする。
func TestFolderService_GenerateMagicPalette_Persists(t *testing.T) {
	folderRepo := newMockFolderRepo()
	folderRepo.folders["folder-1"] = &model.Folder{ID: "folder-1", Name: "画像集"}
	itemRepo := newMockItemRepo()
	itemRepo.items["item-1"] = &model.Item{
		ID: "item-1", FolderID: "folder-1", Type: model.ItemTypeImage,
		Palette: []string{"#FF0000"},
	}
	aggregator := &mockAggregator{
		aggregateFn: func(ctx context.Context, folderID string, items []*model.Item) []string {
			if len(items) != 1 {
				t.Errorf("expected 1 image item passed to aggregator, got %d", len(items))
			}
			return []string{"#FF0000", "#0000FF"}
		},
	}
	svc := newTestService(folderRepo, itemRepo, aggregator)

	palette, err := svc.GenerateMagicPalette(context.Background(), "folder-1")
	if err != nil {
		t.Fatalf("GenerateMagicPalette returned error: %v", err)
	}

	want := []string{"#FF0000", "#0000FF"}
	if !reflect.DeepEqual(palette, want) {
		t.Errorf("palette = %v, want %v", palette, want)
	}
	if !reflect.DeepEqual(folderRepo.folders["folder-1"].MagicPalette, want) {
		t.Errorf("persisted magic palette = %v, want %v", folderRepo.folders["folder-1"].MagicPalette, want)
	}
}

// TestFolderService_GenerateMagicPalette_EmptyResultLeavesFolderUntouched は
// 空の集計結果が既存のマジックパレットを上書きしないことをテストする。
func TestFolderService_GenerateMagicPalette_EmptyResultLeavesFolderUntouched(t *testing.T) {
	folderRepo := newMockFolderRepo()
	existing := []string{"#22C55E"}
	folderRepo.folders["folder-1"] = &model.Folder{ID: "folder-1", Name: "画像集", MagicPalette: existing}
	folderRepo.updateMagicPaletteFn = func(ctx context.Context, folderID string, palette []string) error {
		t.Error("expected no palette update for empty aggregation result")
		return nil
	}
	svc := newTestService(folderRepo, newMockItemRepo(), &mockAggregator{})

	palette, err := svc.GenerateMagicPalette(context.Background(), "folder-1")
	if err != nil {
		t.Fatalf("GenerateMagicPalette returned error: %v", err)
	}
	if len(palette) != 0 {
		t.Errorf("expected empty result, got %v", palette)
	}
	if !reflect.DeepEqual(folderRepo.folders["folder-1"].MagicPalette, existing) {
		t.Errorf("existing magic palette should be untouched, got %v", folderRepo.folders["folder-1"].MagicPalette)
	}
}

// TestFolderService_GenerateMagicPalette_FolderNotFound は存在しないフォルダで
// エラーを返すことをテストする。
func TestFolderService_GenerateMagicPalette_FolderNotFound(t *testing.T) {
	svc := newTestService(newMockFolderRepo(), newMockItemRepo(), &mockAggregator{})

	_, err := svc.GenerateMagicPalette(context.Background(), "no-such-folder")
	assertAPIErrorCode(t, err, model.ErrCodeFolderNotFound)
}
