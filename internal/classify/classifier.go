// Package classify は貼り付け入力のコンテンツ分類を提供する。
// 生テキストからアイテム種別を判定し、保存可能なペイロードを合成する。
package classify

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/untld/untld/internal/colorname"
	"github.com/untld/untld/internal/metadata"
	"github.com/untld/untld/internal/model"
)

// fontPrefix はフォント指定の接頭辞（大文字小文字を区別しない）。
const fontPrefix = "font:"

// hexColorPattern は厳密な16進カラーコードのパターン。
// #RGB または #RRGGBB のみを受理する（rgb()/hsl()等のリッチ形式は受理しない）。
var hexColorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// imageExtensions はURLパス末尾で画像と判定する拡張子。
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".avif"}

// PaletteFetcher は画像URLからのパレット抽出のインターフェース。
type PaletteFetcher interface {
	FetchPalette(ctx context.Context, imageURL string) []string
}

// MetadataFetcher はリンク先ページのメタデータ取得のインターフェース。
type MetadataFetcher interface {
	Fetch(ctx context.Context, pageURL string) *metadata.PageMetadata
}

// ColorNameResolver は16進カラーコードの色名解決のインターフェース。
type ColorNameResolver interface {
	GetColorName(ctx context.Context, hex string) (string, error)
}

// NoteSanitizer はテキストアイテム本文のサニタイズのインターフェース。
// ノートエディタが出力する単純なインライン装飾タグのみを通過させる。
type NoteSanitizer interface {
	SanitizeNote(raw string) string
}

// ClassifierService はコンテンツ分類のインターフェース。
type ClassifierService interface {
	// Classify は生入力からアイテム種別を判定し、保存用ペイロードを合成する。
	// 付随する取得処理（色名・メタデータ・パレット）はすべてベストエフォートで、
	// 失敗しても劣化したペイロードを返す（エラーは返さない）。
	Classify(ctx context.Context, rawInput string) *model.ItemDraft
}

// Classifier はコンテンツ分類の実装。
type Classifier struct {
	paletteFetcher  PaletteFetcher
	metadataFetcher MetadataFetcher
	colorNames      ColorNameResolver
	noteSanitizer   NoteSanitizer
}

// NewClassifier はClassifierの新しいインスタンスを生成する。
func NewClassifier(paletteFetcher PaletteFetcher, metadataFetcher MetadataFetcher, colorNames ColorNameResolver, noteSanitizer NoteSanitizer) *Classifier {
	return &Classifier{
		paletteFetcher:  paletteFetcher,
		metadataFetcher: metadataFetcher,
		colorNames:      colorNames,
		noteSanitizer:   noteSanitizer,
	}
}

// Classify は生入力からアイテム種別を判定し、保存用ペイロードを合成する。
// 判定順序は優先度ポリシーであり、最初に一致した規則で確定する:
//  1. font: 接頭辞 → font
//  2. 厳密な16進カラーコード → color
//  3. URL形状の入力 → image（画像拡張子）または link、検証失敗時はtextへフォールスルー
//  4. それ以外 → text
func (c *Classifier) Classify(ctx context.Context, rawInput string) *model.ItemDraft {
	input := strings.TrimSpace(rawInput)

	// 1. フォント指定
	if len(input) >= len(fontPrefix) && strings.EqualFold(input[:len(fontPrefix)], fontPrefix) {
		family := strings.TrimSpace(input[len(fontPrefix):])
		return &model.ItemDraft{
			Type:    model.ItemTypeFont,
			Content: family,
			Title:   family,
		}
	}

	// 2. カラーコード
	if hexColorPattern.MatchString(input) {
		return c.classifyColor(ctx, input)
	}

	// 3. URL形状の入力
	if looksLikeURL(input) {
		if resolvedURL, ok := normalizeURL(input); ok {
			if hasImageExtension(resolvedURL) {
				return c.classifyImage(ctx, resolvedURL)
			}
			return c.classifyLink(ctx, resolvedURL)
		}
		// 検証失敗時はプレーンテキストとして扱う
	}

	// 4. プレーンテキスト
	// ノートエディタ由来のインライン装飾タグのみを残し、scriptタグ等を除去する
	if c.noteSanitizer != nil {
		input = c.noteSanitizer.SanitizeNote(input)
	}
	return &model.ItemDraft{
		Type:    model.ItemTypeText,
		Content: input,
	}
}

// classifyColor はカラーコード入力のペイロードを合成する。
// 色名解決はベストエフォートで、失敗時はフォールバック名を使う。
func (c *Classifier) classifyColor(ctx context.Context, hex string) *model.ItemDraft {
	name := ""
	if c.colorNames != nil {
		resolved, err := c.colorNames.GetColorName(ctx, hex)
		if err != nil {
			slog.Warn("分類: 色名解決に失敗", "hex", hex, "error", err)
		} else {
			name = resolved
		}
	}
	if name == "" {
		name = colorname.UnnamedColor
	}

	return &model.ItemDraft{
		Type:      model.ItemTypeColor,
		Content:   hex,
		Title:     name,
		ColorHex:  hex,
		ColorName: name,
	}
}

// classifyImage は画像URL入力のペイロードを合成する。
// パレット抽出はベストエフォートで、失敗時は空パレットのまま保存可能とする。
func (c *Classifier) classifyImage(ctx context.Context, imageURL string) *model.ItemDraft {
	var palette []string
	if c.paletteFetcher != nil {
		palette = c.paletteFetcher.FetchPalette(ctx, imageURL)
	}

	return &model.ItemDraft{
		Type:     model.ItemTypeImage,
		Content:  imageURL,
		ImageURL: imageURL,
		Palette:  palette,
	}
}

// classifyLink はリンク入力のペイロードを合成する。
// メタデータ取得はベストエフォートで、フェッチャーがフォールバック値を保証する。
func (c *Classifier) classifyLink(ctx context.Context, pageURL string) *model.ItemDraft {
	draft := &model.ItemDraft{
		Type:    model.ItemTypeLink,
		Content: pageURL,
	}

	if c.metadataFetcher != nil {
		if meta := c.metadataFetcher.Fetch(ctx, pageURL); meta != nil {
			draft.Title = meta.Title
			draft.Favicon = meta.Favicon
			draft.ImageURL = meta.ImageURL
		}
	}
	return draft
}

// looksLikeURL は入力がURL形状かどうかを判定する。
// www.で始まる、またはドットを含み空白を含まない入力をURL候補とみなす。
func looksLikeURL(input string) bool {
	if input == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(input), "www.") {
		return true
	}
	return strings.Contains(input, ".") && !strings.ContainsAny(input, " \t\r\n")
}

// normalizeURL はURL候補にスキームを補い、整形式かどうかを検証する。
// 検証に成功した場合は解決済みURLとtrueを返す。
func normalizeURL(input string) (string, bool) {
	candidate := input
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

// hasImageExtension はURLパスが既知の画像拡張子で終わるかどうかを判定する。
// クエリ・フラグメントは判定に含めない。
func hasImageExtension(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// compile-time interface check
var _ ClassifierService = (*Classifier)(nil)
