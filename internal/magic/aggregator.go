// Package magic はフォルダ単位のマジックパレット集計を提供する。
// フォルダ内の全画像アイテムのパレットを類似色クラスタリングと
// 画像単位の投票で1つのフォルダパレットに統合する。
package magic

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/untld/untld/internal/model"
)

const (
	// defaultCloseness は2色を「視覚的に近い」とみなすRGBユークリッド距離の閾値。
	// 経験的に選ばれた値であり、知覚色空間由来ではない。
	defaultCloseness = 45
	// defaultMaxColors はフォルダパレットの最大色数。
	defaultMaxColors = 5
)

// PaletteFetcher は画像URLからのパレット抽出のインターフェース。
// パレット未抽出アイテムのバックフィルに使う。
type PaletteFetcher interface {
	FetchPalette(ctx context.Context, imageURL string) []string
}

// ItemPaletteStore はバックフィル結果の永続化インターフェース。
type ItemPaletteStore interface {
	UpdatePalette(ctx context.Context, itemID string, palette []string) error
}

// AggregatorService はマジックパレット集計のインターフェース。
type AggregatorService interface {
	// Aggregate はフォルダ内の画像アイテム群からフォルダパレットを計算する。
	// パレット未抽出のアイテムはバックフィルし、成功分は即座に永続化する。
	// 集計結果が空の場合は空スライスを返す（呼び出し元は既存パレットを上書きしない）。
	Aggregate(ctx context.Context, folderID string, items []*model.Item) []string
}

// Aggregator はマジックパレット集計の実装。
// 同一フォルダへの同時再生成はフォルダ単位で直列化され、
// 2つのクリックが互いの結果を黙って潰すことはない。
type Aggregator struct {
	fetcher   PaletteFetcher
	store     ItemPaletteStore
	closeness int
	maxColors int

	mu          sync.Mutex
	folderLocks map[string]*sync.Mutex
}

// NewAggregator はAggregatorの新しいインスタンスを生成する。
// closenessやmaxColorsが0以下の場合はデフォルト値に補正される。
func NewAggregator(fetcher PaletteFetcher, store ItemPaletteStore, closeness, maxColors int) *Aggregator {
	if closeness <= 0 {
		closeness = defaultCloseness
	}
	if maxColors <= 0 {
		maxColors = defaultMaxColors
	}
	return &Aggregator{
		fetcher:     fetcher,
		store:       store,
		closeness:   closeness,
		maxColors:   maxColors,
		folderLocks: make(map[string]*sync.Mutex),
	}
}

// colorGroup は投票のグループを表す。
// keyは最初に出現した色がそのまま恒久的な代表値になる（後から再キー化しない）。
type colorGroup struct {
	key   string
	r     int
	g     int
	b     int
	votes int
}

// Aggregate はフォルダ内の画像アイテム群からフォルダパレットを計算する。
// 投票は画像単位で行う: 1つの画像が同じ色グループに複数の色を寄与しても+1票のみ。
// これにより巨大な単色背景を持つ1枚がピクセル数だけでフォルダパレットを支配することを防ぐ。
func (a *Aggregator) Aggregate(ctx context.Context, folderID string, items []*model.Item) []string {
	lock := a.folderLock(folderID)
	lock.Lock()
	defer lock.Unlock()

	var groups []*colorGroup

	for _, item := range items {
		if item == nil || item.Type != model.ItemTypeImage {
			continue
		}

		palette := item.Palette
		if len(palette) == 0 {
			palette = a.backfill(ctx, item)
		}
		if len(palette) == 0 {
			continue
		}

		// このアイテムが寄与したグループ（重複排除）
		touched := make(map[*colorGroup]bool)

		for _, hex := range palette {
			r, g, b, ok := parseHexColor(hex)
			if !ok {
				slog.Warn("マジックパレット: 不正なカラーコードをスキップ",
					"folder_id", folderID, "item_id", item.ID, "hex", hex)
				continue
			}

			group := a.findCloseGroup(groups, r, g, b)
			if group == nil {
				group = &colorGroup{key: hex, r: r, g: g, b: b}
				groups = append(groups, group)
			}
			touched[group] = true
		}

		// 画像単位の投票: 寄与したグループそれぞれに+1票
		for group := range touched {
			group.votes++
		}
	}

	if len(groups) == 0 {
		return []string{}
	}

	// 票数降順・同数は作成順（安定ソート）
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].votes > groups[j].votes
	})

	count := len(groups)
	if count > a.maxColors {
		count = a.maxColors
	}
	result := make([]string, 0, count)
	for _, group := range groups[:count] {
		result = append(result, group.key)
	}
	return result
}

// backfill はパレット未抽出の画像アイテムのパレットを抽出・永続化する。
// 1アイテムの失敗が他アイテムの処理を妨げないよう、失敗はログのみで続行する。
func (a *Aggregator) backfill(ctx context.Context, item *model.Item) []string {
	if a.fetcher == nil || item.ImageURL == "" {
		return nil
	}

	palette := a.fetcher.FetchPalette(ctx, item.ImageURL)
	if len(palette) == 0 {
		return nil
	}

	item.Palette = palette

	// 集計結果とは独立に即座に永続化する
	if a.store != nil {
		if err := a.store.UpdatePalette(ctx, item.ID, palette); err != nil {
			slog.Warn("マジックパレット: バックフィルの永続化に失敗",
				"item_id", item.ID, "error", err)
		}
	}
	return palette
}

// findCloseGroup は既存グループから近い色のグループを作成順に探す。
// 見つからない場合はnilを返す。
func (a *Aggregator) findCloseGroup(groups []*colorGroup, r, g, b int) *colorGroup {
	threshold := a.closeness * a.closeness
	for _, group := range groups {
		dr := group.r - r
		dg := group.g - g
		db := group.b - b
		// 距離が閾値未満なら「近い」（平方和比較でsqrtを回避）
		if dr*dr+dg*dg+db*db < threshold {
			return group
		}
	}
	return nil
}

// folderLock はフォルダIDに対応するロックを取得する。
func (a *Aggregator) folderLock(folderID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.folderLocks[folderID]
	if !ok {
		lock = &sync.Mutex{}
		a.folderLocks[folderID] = lock
	}
	return lock
}

// parseHexColor は#RRGGBB形式のカラーコードをRGB値に分解する。
func parseHexColor(hex string) (r, g, b int, ok bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0, false
	}
	value, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(value >> 16 & 0xFF), int(value >> 8 & 0xFF), int(value & 0xFF), true
}

// compile-time interface check
var _ AggregatorService = (*Aggregator)(nil)
