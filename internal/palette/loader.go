package palette

import (
	"bytes"
	"context"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	// 対応フォーマットのデコーダ登録
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// LoaderService は画像URLからのパレット抽出のインターフェース。
type LoaderService interface {
	// FetchPalette は画像URLから代表色パレットを抽出する。
	// 取得・デコード・抽出のいずれが失敗しても空スライスを返す（エラーは返さない）。
	FetchPalette(ctx context.Context, imageURL string) []string
}

// Loader は画像URLを取得しパレット抽出に渡す実装。
type Loader struct {
	ssrfGuard SSRFValidator
	extractor *Extractor
	maxColors int
	timeout   time.Duration
	maxSize   int64
}

// NewLoader はLoaderの新しいインスタンスを生成する。
func NewLoader(ssrfGuard SSRFValidator, extractor *Extractor, maxColors int, timeout time.Duration, maxSize int64) *Loader {
	return &Loader{
		ssrfGuard: ssrfGuard,
		extractor: extractor,
		maxColors: maxColors,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// FetchPalette は画像URLから代表色パレットを抽出する。
// パレットは装飾的メタデータであり、失敗してもアイテム保存を妨げない
// （要件: 抽出失敗時は空パレットとして保存）。
func (l *Loader) FetchPalette(ctx context.Context, imageURL string) []string {
	if imageURL == "" {
		return []string{}
	}

	// SSRF検証
	if l.ssrfGuard != nil {
		if err := l.ssrfGuard.ValidateURL(imageURL); err != nil {
			slog.Warn("パレット抽出: SSRFブロック", "url", imageURL, "error", err)
			return []string{}
		}
	}

	client := l.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		slog.Warn("パレット抽出: リクエスト作成失敗", "url", imageURL, "error", err)
		return []string{}
	}
	req.Header.Set("User-Agent", "Untld/1.0 Moodboard")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("パレット抽出: HTTPリクエスト失敗", "url", imageURL, "error", err)
		return []string{}
	}
	defer resp.Body.Close()

	// 2xx以外は取得失敗として扱う
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("パレット抽出: HTTPステータス異常", "url", imageURL, "status", resp.StatusCode)
		return []string{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxSize+1))
	if err != nil {
		slog.Warn("パレット抽出: レスポンス読み取り失敗", "url", imageURL, "error", err)
		return []string{}
	}

	// サイズ超過チェック
	if int64(len(body)) > l.maxSize {
		slog.Warn("パレット抽出: サイズ超過", "url", imageURL, "size", len(body))
		return []string{}
	}

	// SVG等のベクタ形式はデコーダ未登録のためここで失敗し、空パレットになる
	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		slog.Warn("パレット抽出: 画像デコード失敗", "url", imageURL, "error", err)
		return []string{}
	}

	colors := l.extractor.Extract(img, l.maxColors)
	slog.Debug("パレット抽出: 完了", "url", imageURL, "format", format, "colors", len(colors))
	return colors
}

// getHTTPClient はHTTPクライアントを取得する。
func (l *Loader) getHTTPClient() *http.Client {
	if l.ssrfGuard != nil {
		return l.ssrfGuard.NewSafeClient(l.timeout, l.maxSize)
	}
	return &http.Client{Timeout: l.timeout}
}

// compile-time interface check
var _ LoaderService = (*Loader)(nil)
