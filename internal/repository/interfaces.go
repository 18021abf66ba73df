// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/untld/untld/internal/model"
)

// FolderRepository はフォルダデータの永続化インターフェース。
type FolderRepository interface {
	// FindByID は指定IDのフォルダを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Folder, error)

	// List は全フォルダをアイテム数付きで作成日時昇順で返す。
	List(ctx context.Context) ([]model.FolderWithCount, error)

	// Create はフォルダを作成する。
	Create(ctx context.Context, folder *model.Folder) error

	// Update はフォルダの名前とアクセントカラーを更新する。
	Update(ctx context.Context, folder *model.Folder) error

	// UpdateMagicPalette はフォルダのマジックパレットを上書きする。
	// パレット以外のフィールドは変更しない。
	UpdateMagicPalette(ctx context.Context, folderID string, palette []string) error

	// DeleteByID は指定IDのフォルダを削除する。
	// 所属アイテムの退避は呼び出し元（サービス層）の責務。
	DeleteByID(ctx context.Context, id string) error
}

// ItemRepository はアイテムデータの永続化インターフェース。
type ItemRepository interface {
	// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Item, error)

	// Create は新規アイテムを作成する。
	Create(ctx context.Context, item *model.Item) error

	// Update は既存アイテムを上書き更新する。履歴は保持しない。
	Update(ctx context.Context, item *model.Item) error

	// UpdatePalette はアイテムのパレットのみを更新する。
	// バックフィルの独立サブトランザクションとして、他フィールドに触れない。
	UpdatePalette(ctx context.Context, itemID string, palette []string) error

	// DeleteByID は指定IDのアイテムを削除する。
	DeleteByID(ctx context.Context, id string) error

	// ListByFolder はフォルダ内のアイテムを作成日時降順で返す。
	// itemTypeが空でない場合はその種別に絞り込む。
	ListByFolder(ctx context.Context, folderID string, itemType model.ItemType) ([]*model.Item, error)

	// ListImagesByFolder はフォルダ内の画像アイテムを作成日時降順で返す。
	ListImagesByFolder(ctx context.Context, folderID string) ([]*model.Item, error)

	// ListImagesMissingPalette はパレット未設定の画像アイテムを古い順に最大limit件返す。
	ListImagesMissingPalette(ctx context.Context, limit int) ([]*model.Item, error)

	// CountAll はアイテムの総数を返す。上限チェックに使用する。
	CountAll(ctx context.Context) (int, error)

	// ReassignFolder はfromFolderID配下の全アイテムをtoFolderIDに付け替える。
	// フォルダ削除時にアイテムを孤児にしないために使用する。
	ReassignFolder(ctx context.Context, fromFolderID, toFolderID string) error
}
