// Package metadata はリンク先ページのメタデータ取得を提供する。
// タイトル・説明・OG画像・faviconを取得し、アイテムの表示情報を充実させる。
package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// PageMetadata はリンク先ページから取得したメタデータを表す。
type PageMetadata struct {
	Title       string
	Description string
	ImageURL    string
	Favicon     string
}

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// TextSanitizer は取得したメタデータ文字列のサニタイズインターフェース。
type TextSanitizer interface {
	SanitizeText(input string) string
}

// FetcherService はページメタデータ取得のインターフェース。
type FetcherService interface {
	// Fetch は指定URLのページメタデータを取得する。
	// 取得・解析に失敗してもエラーは返さず、ホスト名ベースのフォールバックを返す。
	Fetch(ctx context.Context, pageURL string) *PageMetadata
}

// Fetcher はページメタデータ取得機能の実装。
type Fetcher struct {
	ssrfGuard         SSRFValidator
	sanitizer         TextSanitizer
	faviconServiceURL string
	timeout           time.Duration
	maxSize           int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// faviconServiceURLはホスト名を埋め込む%sプレースホルダを1つ含むこと。
func NewFetcher(ssrfGuard SSRFValidator, sanitizer TextSanitizer, faviconServiceURL string, timeout time.Duration, maxSize int64) *Fetcher {
	return &Fetcher{
		ssrfGuard:         ssrfGuard,
		sanitizer:         sanitizer,
		faviconServiceURL: faviconServiceURL,
		timeout:           timeout,
		maxSize:           maxSize,
	}
}

// Fetch は指定URLのページメタデータを取得する。
// メタデータは装飾的情報のため、どの段階で失敗しても
// ホスト名をタイトルとするフォールバック値を返す（要件: 取得失敗はアイテム保存を妨げない）。
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) *PageMetadata {
	fallback := f.fallbackMetadata(pageURL)

	if pageURL == "" {
		return fallback
	}

	// SSRF検証
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(pageURL); err != nil {
			slog.Warn("メタデータ取得: SSRFブロック", "url", pageURL, "error", err)
			return fallback
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		slog.Warn("メタデータ取得: リクエスト作成失敗", "url", pageURL, "error", err)
		return fallback
	}
	req.Header.Set("User-Agent", "Untld/1.0 Moodboard")
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("メタデータ取得: HTTPリクエスト失敗", "url", pageURL, "error", err)
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("メタデータ取得: HTTPステータス異常", "url", pageURL, "status", resp.StatusCode)
		return fallback
	}

	// HTML以外のボディは解析しない
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.Contains(strings.ToLower(mediaType), "html") {
		return fallback
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize))
	if err != nil {
		slog.Warn("メタデータ取得: レスポンス読み取り失敗", "url", pageURL, "error", err)
		return fallback
	}

	meta := f.parseHTML(body, pageURL)

	// 解析で何も得られなかったフィールドはフォールバック値で補完
	if meta.Title == "" {
		meta.Title = fallback.Title
	}
	meta.Favicon = fallback.Favicon
	return meta
}

// parseHTML はHTMLのheadタグからタイトル・説明・OG画像を解析する。
// <title>とmeta descriptionが主で、欠落時のみog:title/og:descriptionで補完する。
func (f *Fetcher) parseHTML(htmlBody []byte, baseURL string) *PageMetadata {
	var (
		title         string
		ogTitle       string
		description   string
		ogDescription string
		ogImage       string
	)

	baseU, baseErr := url.Parse(baseURL)

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inTitle := false

loop:
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			break loop

		case html.TextToken:
			if inTitle && title == "" {
				title = string(tokenizer.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "title" {
				inTitle = true
				continue
			}

			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				break loop
			}

			if tagName != "meta" || !hasAttr {
				continue
			}

			// meta要素の属性を解析
			var name, property, content string
			for {
				key, val, more := tokenizer.TagAttr()
				k := strings.ToLower(string(key))
				v := string(val)
				switch k {
				case "name":
					name = strings.ToLower(v)
				case "property":
					property = strings.ToLower(v)
				case "content":
					content = v
				}
				if !more {
					break
				}
			}

			switch {
			case property == "og:title":
				ogTitle = content
			case property == "og:description":
				ogDescription = content
			case property == "og:image":
				ogImage = content
			case name == "description":
				description = content
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "title":
				inTitle = false
			case "head":
				break loop
			}
		}
	}

	// titleタグとmeta descriptionが主、OGタグは欠落時の補完
	if title == "" {
		title = ogTitle
	}
	if description == "" {
		description = ogDescription
	}

	// 相対OG画像URLを絶対URLに解決
	if ogImage != "" && baseErr == nil {
		ogImage = resolveURL(baseU, ogImage)
	}

	return &PageMetadata{
		Title:       f.sanitize(title),
		Description: f.sanitize(description),
		ImageURL:    strings.TrimSpace(ogImage),
	}
}

// fallbackMetadata は取得失敗時のフォールバックメタデータを生成する。
// タイトルはホスト名、faviconはfaviconサービスのURLになる。
func (f *Fetcher) fallbackMetadata(pageURL string) *PageMetadata {
	hostname := extractHostname(pageURL)
	meta := &PageMetadata{Title: hostname}
	if hostname != "" && f.faviconServiceURL != "" {
		meta.Favicon = fmt.Sprintf(f.faviconServiceURL, hostname)
	}
	return meta
}

// sanitize は取得文字列からHTMLタグを除去し前後の空白を削る。
func (f *Fetcher) sanitize(input string) string {
	if f.sanitizer != nil {
		return f.sanitizer.SanitizeText(input)
	}
	return strings.TrimSpace(input)
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *Fetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxSize)
	}
	return &http.Client{Timeout: f.timeout}
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。
func resolveURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// extractHostname はURLからホスト名を抽出する。
// スキームなしの入力はhttps://を補って解釈する。
func extractHostname(rawURL string) string {
	candidate := rawURL
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// compile-time interface check
var _ FetcherService = (*Fetcher)(nil)
