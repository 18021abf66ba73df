// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordItemClassified(itemType string)
	RecordPaletteExtraction(success bool)
	RecordPaletteLatency(duration time.Duration)
	RecordColorNameFallback()
	RecordMagicPaletteGenerated()
	RecordBackfillRun(updatedItems int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	itemsClassified   *prometheus.CounterVec
	paletteSuccess    prometheus.Counter
	paletteFail       prometheus.Counter
	paletteLatency    prometheus.Histogram
	colorNameFallback prometheus.Counter
	magicGenerated    prometheus.Counter
	backfillRuns      prometheus.Counter
	backfillItems     prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		itemsClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "untld_items_classified_total",
			Help: "分類されたアイテムの種別ごとの合計数",
		}, []string{"type"}),
		paletteSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "untld_palette_extract_success_total",
			Help: "パレット抽出成功の合計数",
		}),
		paletteFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "untld_palette_extract_fail_total",
			Help: "パレット抽出失敗（空パレット）の合計数",
		}),
		paletteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "untld_palette_extract_latency_seconds",
			Help:    "パレット抽出のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		colorNameFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "untld_colorname_fallback_total",
			Help: "色名解決に失敗しフォールバック名を使った合計数",
		}),
		magicGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "untld_magic_palette_generated_total",
			Help: "マジックパレット生成の合計数",
		}),
		backfillRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "untld_backfill_runs_total",
			Help: "パレットバックフィル実行の合計数",
		}),
		backfillItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "untld_backfill_items_updated_total",
			Help: "バックフィルでパレットが設定されたアイテムの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "untld_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.itemsClassified,
		c.paletteSuccess,
		c.paletteFail,
		c.paletteLatency,
		c.colorNameFallback,
		c.magicGenerated,
		c.backfillRuns,
		c.backfillItems,
		c.httpStatus,
	)

	return c
}

// RecordItemClassified は分類されたアイテムを種別付きで記録する。
func (c *Collector) RecordItemClassified(itemType string) {
	c.itemsClassified.WithLabelValues(itemType).Inc()
}

// RecordPaletteExtraction はパレット抽出の成否を記録する。
func (c *Collector) RecordPaletteExtraction(success bool) {
	if success {
		c.paletteSuccess.Inc()
	} else {
		c.paletteFail.Inc()
	}
}

// RecordPaletteLatency はパレット抽出のレイテンシを記録する。
func (c *Collector) RecordPaletteLatency(duration time.Duration) {
	c.paletteLatency.Observe(duration.Seconds())
}

// RecordColorNameFallback は色名解決のフォールバック発生を記録する。
func (c *Collector) RecordColorNameFallback() {
	c.colorNameFallback.Inc()
}

// RecordMagicPaletteGenerated はマジックパレット生成を記録する。
func (c *Collector) RecordMagicPaletteGenerated() {
	c.magicGenerated.Inc()
}

// RecordBackfillRun はバックフィル実行と更新アイテム数を記録する。
func (c *Collector) RecordBackfillRun(updatedItems int) {
	c.backfillRuns.Inc()
	c.backfillItems.Add(float64(updatedItems))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
