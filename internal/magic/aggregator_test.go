package magic

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/untld/untld/internal/model"
)

// --- モック ---

type mockPaletteFetcher struct {
	fetchPaletteFunc func(ctx context.Context, imageURL string) []string
	calls            []string
}

func (m *mockPaletteFetcher) FetchPalette(ctx context.Context, imageURL string) []string {
	m.calls = append(m.calls, imageURL)
	if m.fetchPaletteFunc != nil {
		return m.fetchPaletteFunc(ctx, imageURL)
	}
	return []string{}
}

type mockPaletteStore struct {
	mu              sync.Mutex
	updates         map[string][]string
	updatePaletteFn func(ctx context.Context, itemID string, palette []string) error
}

func newMockPaletteStore() *mockPaletteStore {
	return &mockPaletteStore{updates: make(map[string][]string)}
}

func (m *mockPaletteStore) UpdatePalette(ctx context.Context, itemID string, palette []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updatePaletteFn != nil {
		if err := m.updatePaletteFn(ctx, itemID, palette); err != nil {
			return err
		}
	}
	m.updates[itemID] = palette
	return nil
}

func imageItem(id string, palette []string) *model.Item {
	return &model.Item{
		ID:       id,
		Type:     model.ItemTypeImage,
		ImageURL: "https://example.com/" + id + ".png",
		Palette:  palette,
	}
}

// --- テスト ---

// TestAggregator_ImplementsInterface はAggregatorがインターフェースを満たすことを検証する。
func TestAggregator_ImplementsInterface(t *testing.T) {
	var _ AggregatorService = (*Aggregator)(nil)
}

// TestAggregator_Aggregate_CloseColorsMergeWithImageVotes は近い色が1グループにまとまり、
// 画像単位で投票されることをテストする。
func TestAggregator_Aggregate_CloseColorsMergeWithImageVotes(t *testing.T) {
	aggregator := NewAggregator(&mockPaletteFetcher{}, newMockPaletteStore(), 45, 5)

	// #FF0000と#FF0A0Aは距離14で近い。#0000FFは別グループ。
	items := []*model.Item{
		imageItem("item-1", []string{"#FF0000"}),
		imageItem("item-2", []string{"#FF0A0A"}),
		imageItem("item-3", []string{"#0000FF"}),
	}

	got := aggregator.Aggregate(context.Background(), "folder-1", items)
	want := []string{"#FF0000", "#0000FF"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// TestAggregator_Aggregate_FirstSeenKeyIsPermanent はグループの代表値が
// 最初に出現した色のまま変わらないことをテストする。
func TestAggregator_Aggregate_FirstSeenKeyIsPermanent(t *testing.T) {
	aggregator := NewAggregator(&mockPaletteFetcher{}, newMockPaletteStore(), 45, 5)

	// 後続の#FF0A0Aは既存グループ#FF0000に吸収され、代表値は再キー化されない
	items := []*model.Item{
		imageItem("item-1", []string{"#FF0000"}),
		imageItem("item-2", []string{"#FF0A0A"}),
	}

	got := aggregator.Aggregate(context.Background(), "folder-1", items)
	if len(got) != 1 || got[0] != "#FF0000" {
		t.Errorf("expected ['#FF0000'], got %v", got)
	}
}

// TestAggregator_Aggregate_OneVotePerImagePerGroup は1画像が同じグループに複数の色を
// 寄与しても+1票のみであることをテストする。
func TestAggregator_Aggregate_OneVotePerImagePerGroup(t *testing.T) {
	aggregator := NewAggregator(&mockPaletteFetcher{}, newMockPaletteStore(), 45, 5)

	// item-1は赤系2色を寄与するが赤グループへの票は1。
	// item-2とitem-3は青を寄与し、青グループが2票で勝つ。
	items := []*model.Item{
		imageItem("item-1", []string{"#FF0000", "#FF0A0A"}),
		imageItem("item-2", []string{"#0000FF"}),
		imageItem("item-3", []string{"#000AFF"}),
	}

	got := aggregator.Aggregate(context.Background(), "folder-1", items)
	want := []string{"#0000FF", "#FF0000"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// TestAggregator_Aggregate_TiesBrokenByInsertionOrder は同票のグループが
// 作成順を維持することをテストする。
func TestAggregator_Aggregate_TiesBrokenByInsertionOrder(t *testing.T) {
	aggregator := NewAggregator(&mockPaletteFetcher{}, newMockPaletteStore(), 45, 5)

	items := []*model.Item{
		imageItem("item-1", []string{"#FF0000", "#0000FF", "#00FF00"}),
	}

	got := aggregator.Aggregate(context.Background(), "folder-1", items)
	want := []string{"#FF0000", "#0000FF", "#00FF00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected insertion order %v, got %v", want, got)
	}
}

// TestAggregator_Aggregate_TopFiveLimit は結果が最大5色に制限されることをテストする。
func TestAggregator_Aggregate_TopFiveLimit(t *testing.T) {
	aggregator := NewAggregator(&mockPaletteFetcher{}, newMockPaletteStore(), 45, 5)

	// 互いに十分遠い7色
	items := []*model.Item{
		imageItem("item-1", []string{
			"#FF0000", "#00FF00", "#0000FF", "#FFFF00", "#00FFFF", "#FF00FF", "#804020",
		}),
	}

	got := aggregator.Aggregate(context.Background(), "folder-1", items)
	if len(got) != 5 {
		t.Errorf("expected 5 colors, got %d: %v", len(got), got)
	}
}

// TestAggregator_Aggregate_EmptyItems は空のアイテム集合で空結果を返すことをテストする。
func TestAggregator_Aggregate_EmptyItems(t *testing.T) {
	aggregator := NewAggregator(&mockPaletteFetcher{}, newMockPaletteStore(), 45, 5)

	got := aggregator.Aggregate(context.Background(), "folder-1", nil)
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

// TestAggregator_Aggregate_BackfillsMissingPalettes はパレット未抽出のアイテムが
// バックフィルされ、永続化されることをテストする。
func TestAggregator_Aggregate_BackfillsMissingPalettes(t *testing.T) {
	fetcher := &mockPaletteFetcher{
		fetchPaletteFunc: func(ctx context.Context, imageURL string) []string {
			return []string{"#C86432"}
		},
	}
	store := newMockPaletteStore()
	aggregator := NewAggregator(fetcher, store, 45, 5)

	items := []*model.Item{
		imageItem("item-1", nil),
		imageItem("item-2", []string{"#0000FF"}),
	}

	got := aggregator.Aggregate(context.Background(), "folder-1", items)
	if len(got) != 2 {
		t.Fatalf("expected 2 colors, got %v", got)
	}

	// バックフィルは対象アイテムのみに行われる
	if len(fetcher.calls) != 1 || fetcher.calls[0] != "https://example.com/item-1.png" {
		t.Errorf("expected single backfill fetch for item-1, got %v", fetcher.calls)
	}
	if !reflect.DeepEqual(store.updates["item-1"], []string{"#C86432"}) {
		t.Errorf("expected persisted backfill palette for item-1, got %v", store.updates["item-1"])
	}
	if _, ok := store.updates["item-2"]; ok {
		t.Error("expected no palette update for item-2 (palette already present)")
	}
}

// TestAggregator_Aggregate_BackfillFailureIsolated は1アイテムのバックフィル失敗が
// 他アイテムの処理を妨げないことをテストする。
func TestAggregator_Aggregate_BackfillFailureIsolated(t *testing.T) {
	fetcher := &mockPaletteFetcher{
		fetchPaletteFunc: func(ctx context.Context, imageURL string) []string {
			// item-1の抽出は失敗（空パレット）
			return []string{}
		},
	}
	aggregator := NewAggregator(fetcher, newMockPaletteStore(), 45, 5)

	items := []*model.Item{
		imageItem("item-1", nil),
		imageItem("item-2", []string{"#0000FF"}),
	}

	got := aggregator.Aggregate(context.Background(), "folder-1", items)
	if !reflect.DeepEqual(got, []string{"#0000FF"}) {
		t.Errorf("expected ['#0000FF'] from surviving item, got %v", got)
	}
}

// TestAggregator_Aggregate_PersistFailureDoesNotBlock は永続化失敗でも
// 集計が継続することをテストする。
func TestAggregator_Aggregate_PersistFailureDoesNotBlock(t *testing.T) {
	fetcher := &mockPaletteFetcher{
		fetchPaletteFunc: func(ctx context.Context, imageURL string) []string {
			return []string{"#C86432"}
		},
	}
	store := newMockPaletteStore()
	store.updatePaletteFn = func(ctx context.Context, itemID string, palette []string) error {
		return fmt.Errorf("db unavailable")
	}
	aggregator := NewAggregator(fetcher, store, 45, 5)

	items := []*model.Item{imageItem("item-1", nil)}

	got := aggregator.Aggregate(context.Background(), "folder-1", items)
	if !reflect.DeepEqual(got, []string{"#C86432"}) {
		t.Errorf("expected ['#C86432'] despite persist failure, got %v", got)
	}
}

// TestAggregator_Aggregate_SkipsNonImageItems は画像以外のアイテムが無視されることをテストする。
func TestAggregator_Aggregate_SkipsNonImageItems(t *testing.T) {
	aggregator := NewAggregator(&mockPaletteFetcher{}, newMockPaletteStore(), 45, 5)

	items := []*model.Item{
		{ID: "item-1", Type: model.ItemTypeText, Content: "not an image"},
		imageItem("item-2", []string{"#0000FF"}),
	}

	got := aggregator.Aggregate(context.Background(), "folder-1", items)
	if !reflect.DeepEqual(got, []string{"#0000FF"}) {
		t.Errorf("expected ['#0000FF'], got %v", got)
	}
}

// TestAggregator_Aggregate_SerializesPerFolder は同一フォルダへの同時集計が
// 直列化されることをテストする。
func TestAggregator_Aggregate_SerializesPerFolder(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	fetcher := &mockPaletteFetcher{
		fetchPaletteFunc: func(ctx context.Context, imageURL string) []string {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			// フェッチ中の状態を保ったまま他のゴルーチンに実行機会を与える。
			// 直列化されていなければここで並行フェッチが観測される。
			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return []string{"#C86432"}
		},
	}
	aggregator := NewAggregator(fetcher, newMockPaletteStore(), 45, 5)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items := []*model.Item{imageItem("item-1", nil)}
			aggregator.Aggregate(context.Background(), "folder-1", items)
		}()
	}
	wg.Wait()

	if maxInFlight > 1 {
		t.Errorf("expected serialized aggregation per folder, observed %d concurrent fetches", maxInFlight)
	}
}

// TestParseHexColor はカラーコードのRGB分解をテストする。
func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		r, g, b int
		ok      bool
	}{
		{"#FF0000", 255, 0, 0, true},
		{"#C86432", 200, 100, 50, true},
		{"#ff00aa", 255, 0, 170, true},
		{"#FFF", 0, 0, 0, false},
		{"FF0000", 0, 0, 0, false},
		{"#GGGGGG", 0, 0, 0, false},
	}

	for _, tt := range tests {
		r, g, b, ok := parseHexColor(tt.input)
		if r != tt.r || g != tt.g || b != tt.b || ok != tt.ok {
			t.Errorf("parseHexColor(%q) = (%d, %d, %d, %v), want (%d, %d, %d, %v)",
				tt.input, r, g, b, ok, tt.r, tt.g, tt.b, tt.ok)
		}
	}
}
