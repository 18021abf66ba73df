// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー入力およびスクレイピング結果のテキストを
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// SanitizeNote はテキストアイテムの本文をサニタイズする。
	// ノートエディタが出力する単純なインライン装飾タグ
	// （b, i, strong, em, u, br, p）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeNote(raw string) string

	// SanitizeText はスクレイピングで得たタイトル・説明文から
	// 全てのタグを除去し、プレーンテキストを返す。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	notePolicy   *bluemonday.Policy
	strictPolicy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのポリシーを構築する。
//   - ノート用: b, i, strong, em, u, br, p のみ許可
//   - メタデータ用: StrictPolicy（全タグ除去）
func NewContentSanitizer() *contentSanitizer {
	notePolicy := bluemonday.NewPolicy()
	// ノートエディタが出力するインライン装飾のみ。
	// script, iframe, style等は許可リストに含めないことで自動的に除去される。
	// on*イベント属性はbluemondayのデフォルトで許可されない。
	notePolicy.AllowElements("b", "i", "strong", "em", "u", "br", "p")

	return &contentSanitizer{
		notePolicy:   notePolicy,
		strictPolicy: bluemonday.StrictPolicy(),
	}
}

// SanitizeNote はテキストアイテムの本文をサニタイズする。
func (s *contentSanitizer) SanitizeNote(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.notePolicy.Sanitize(raw))
}

// SanitizeText はスクレイピング結果から全タグを除去したプレーンテキストを返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.strictPolicy.Sanitize(raw))
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
