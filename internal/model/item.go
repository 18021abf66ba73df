// Package model はドメインモデルを定義する。
package model

import "time"

// ItemType はアイテムの種別を表す。
// 種別は作成時にコンテンツ分類器が1回だけ決定し、以降はユーザーの明示的な編集でのみ変わる。
type ItemType string

const (
	// ItemTypeText はプレーンテキストのアイテム。
	ItemTypeText ItemType = "text"
	// ItemTypeColor はカラーコードのアイテム。
	ItemTypeColor ItemType = "color"
	// ItemTypeLink はWebリンクのアイテム。
	ItemTypeLink ItemType = "link"
	// ItemTypeImage は画像URLのアイテム。
	ItemTypeImage ItemType = "image"
	// ItemTypeFont はフォントファミリー名のアイテム。
	ItemTypeFont ItemType = "font"
)

// ValidItemTypes は有効なアイテム種別のセット。
var ValidItemTypes = map[ItemType]bool{
	ItemTypeText:  true,
	ItemTypeColor: true,
	ItemTypeLink:  true,
	ItemTypeImage: true,
	ItemTypeFont:  true,
}

// Item はムードボードに保存された1エントリを表す。
type Item struct {
	ID       string
	FolderID string
	Type     ItemType

	// Content は主ペイロード。
	// text: 本文 / color: 16進カラーコード / link: 解決済みURL /
	// image: 画像URL / font: フォントファミリー名
	Content string

	// 種別依存のオプションフィールド
	Title     string
	Favicon   string // faviconのURL
	ImageURL  string // プレビュー/原寸画像のURL
	ColorHex  string
	ColorName string // 外部カラー命名サービスで解決した表示名

	// Palette は画像アイテムの代表色（#RRGGBB大文字、最大5件）。
	// 抽出時の出現頻度降順のまま保持し、後から並べ替えない。
	Palette []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemDraft はコンテンツ分類器が生成する保存前のアイテムペイロードを表す。
// IDと作成日時はサービス層が保存時に付与する。
type ItemDraft struct {
	Type      ItemType
	Content   string
	Title     string
	Favicon   string
	ImageURL  string
	ColorHex  string
	ColorName string
	Palette   []string
}

// GroupedItems はフォルダ内アイテムをセクション別に分けた結果を表す。
// 各スライスは作成日時降順。
type GroupedItems struct {
	Texts  []*Item
	Colors []*Item
	Links  []*Item
	Images []*Item
	Fonts  []*Item
}
