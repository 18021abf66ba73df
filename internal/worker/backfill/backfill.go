// Package backfill はパレット未設定画像のバックグラウンド補完処理を提供する。
// 分類時にパレット抽出へ失敗した画像アイテムを定期的に拾い直す。
package backfill

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/untld/untld/internal/metrics"
	"github.com/untld/untld/internal/model"
	"github.com/untld/untld/internal/repository"
)

// defaultBatchSize は1サイクルで処理するアイテム数の上限デフォルト。
const defaultBatchSize = 50

// PaletteFetcher はパレット抽出の実行インターフェース。
// 失敗時は空スライスを返す（エラーを返さない）。
type PaletteFetcher interface {
	FetchPalette(ctx context.Context, imageURL string) []string
}

// Scheduler はパレットバックフィルのスケジューリングと並列制御を行う。
// ティッカーで未設定画像を取得し、semaphoreパターンで
// 最大並列数を制御しながら抽出・保存を実行する。
// 1アイテムの失敗は他のアイテムに影響しない。
type Scheduler struct {
	itemRepo       repository.ItemRepository
	fetcher        PaletteFetcher
	logger         *slog.Logger
	metrics        metrics.MetricsCollector
	batchSize      int
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// batchSizeが0以下の場合はデフォルト値50、
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewScheduler(
	itemRepo repository.ItemRepository,
	fetcher PaletteFetcher,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	batchSize int,
	maxConcurrency int,
) *Scheduler {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Scheduler{
		itemRepo:       itemRepo,
		fetcher:        fetcher,
		logger:         logger,
		metrics:        collector,
		batchSize:      batchSize,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("パレットバックフィルスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", s.batchSize),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("バックフィルサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("パレットバックフィルスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("バックフィルサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はパレット未設定の画像アイテムを1回取得し、並列で補完を実行する。
// 補完できたアイテム数を返す。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	items, err := s.itemRepo.ListImagesMissingPalette(ctx, s.batchSize)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		s.logger.Info("バックフィル対象のアイテムはありません")
		if s.metrics != nil {
			s.metrics.RecordBackfillRun(0)
		}
		return nil
	}

	s.logger.Info("バックフィルサイクルを開始します",
		slog.Int("item_count", len(items)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	updated := 0

	for _, it := range items {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(target *model.Item) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if s.backfillItem(ctx, target) {
				mu.Lock()
				updated++
				mu.Unlock()
			}
		}(it)
	}

	wg.Wait()

	if s.metrics != nil {
		s.metrics.RecordBackfillRun(updated)
	}

	duration := time.Since(start)
	s.logger.Info("バックフィルサイクルが完了しました",
		slog.Int("item_count", len(items)),
		slog.Int("updated", updated),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// backfillItem は1アイテムのパレットを抽出・保存する。
// 抽出に失敗（空パレット）した場合は保存せずfalseを返す。
func (s *Scheduler) backfillItem(ctx context.Context, item *model.Item) bool {
	imageURL := item.ImageURL
	if imageURL == "" {
		imageURL = item.Content
	}
	if imageURL == "" {
		return false
	}

	extractStart := time.Now()
	palette := s.fetcher.FetchPalette(ctx, imageURL)
	if s.metrics != nil {
		s.metrics.RecordPaletteLatency(time.Since(extractStart))
		s.metrics.RecordPaletteExtraction(len(palette) > 0)
	}

	if len(palette) == 0 {
		s.logger.Warn("パレット抽出に失敗しました。次のサイクルで再試行します",
			slog.String("item_id", item.ID),
			slog.String("image_url", imageURL),
		)
		return false
	}

	if err := s.itemRepo.UpdatePalette(ctx, item.ID, palette); err != nil {
		s.logger.Warn("パレットの保存に失敗しました",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	return true
}
