// Package model はドメインモデルを定義する。
package model

import "time"

// DefaultFolderID はデフォルトフォルダの固定ID。
// フォルダ削除時のアイテム退避先であり、このフォルダ自体は削除できない。
const DefaultFolderID = "default-moodboard"

// DefaultFolderName はデフォルトフォルダの表示名。
const DefaultFolderName = "Moodboard"

// FolderColors はフォルダのアクセントカラー候補。
// 色指定なしでフォルダを作成した場合、この中からランダムに選ばれる。
var FolderColors = []string{
	"#22c55e", "#3b82f6", "#ef4444", "#eab308",
	"#a855f7", "#ec4899", "#f97316", "#06b6d4",
}

// Folder はアイテムをまとめるグループを表す。
type Folder struct {
	ID    string
	Name  string
	Color string // UIのアクセントカラー

	// MagicPalette はフォルダ内の全画像アイテムから集約したパレット
	// （#RRGGBB大文字、最大5件）。初回生成まではnil、再生成のたびに上書きされる。
	// 近似色はグループ化済みのため、互いに視覚的に近い色は含まれない。
	MagicPalette []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FolderWithCount はフォルダとその所属アイテム数を結合したモデル。
type FolderWithCount struct {
	Folder
	ItemCount int
}
