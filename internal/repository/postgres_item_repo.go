package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/untld/untld/internal/model"
)

// PostgresItemRepo はPostgreSQLを使用したアイテムリポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

// itemColumns はitemsテーブルのSELECT列リスト。scanItemと対応を保つこと。
const itemColumns = `id, folder_id, type, content, title, favicon, image_url,
        color_hex, color_name, palette, created_at, updated_at`

// scanItem は1行をmodel.Itemに読み取る。
func scanItem(scan func(dest ...any) error) (*model.Item, error) {
	item := &model.Item{}
	var title, favicon, imageURL, colorHex, colorName sql.NullString
	var palette pq.StringArray

	err := scan(
		&item.ID, &item.FolderID, &item.Type, &item.Content,
		&title, &favicon, &imageURL, &colorHex, &colorName, &palette,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Title = title.String
	item.Favicon = favicon.String
	item.ImageURL = imageURL.String
	item.ColorHex = colorHex.String
	item.ColorName = colorName.String
	item.Palette = []string(palette)
	return item, nil
}

// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
func (r *PostgresItemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id)

	item, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アイテムの取得に失敗しました: %w", err)
	}
	return item, nil
}

// Create は新規アイテムを作成する。
func (r *PostgresItemRepo) Create(ctx context.Context, item *model.Item) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO items (id, folder_id, type, content, title, favicon, image_url,
		                    color_hex, color_name, palette, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ID, item.FolderID, item.Type, item.Content,
		nullIfEmpty(item.Title), nullIfEmpty(item.Favicon), nullIfEmpty(item.ImageURL),
		nullIfEmpty(item.ColorHex), nullIfEmpty(item.ColorName), paletteArray(item.Palette),
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("アイテムの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は既存アイテムを上書き更新する。履歴は保持しない。
func (r *PostgresItemRepo) Update(ctx context.Context, item *model.Item) error {
	item.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE items
		 SET folder_id = $2, type = $3, content = $4, title = $5, favicon = $6,
		     image_url = $7, color_hex = $8, color_name = $9, palette = $10, updated_at = $11
		 WHERE id = $1`,
		item.ID, item.FolderID, item.Type, item.Content,
		nullIfEmpty(item.Title), nullIfEmpty(item.Favicon), nullIfEmpty(item.ImageURL),
		nullIfEmpty(item.ColorHex), nullIfEmpty(item.ColorName), paletteArray(item.Palette),
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("アイテムの更新に失敗しました: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("更新対象のアイテムが存在しません: %s", item.ID)
	}
	return nil
}

// UpdatePalette はアイテムのパレットのみを更新する。
func (r *PostgresItemRepo) UpdatePalette(ctx context.Context, itemID string, palette []string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET palette = $2, updated_at = $3 WHERE id = $1`,
		itemID, paletteArray(palette), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("パレットの更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのアイテムを削除する。
func (r *PostgresItemRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("アイテムの削除に失敗しました: %w", err)
	}
	return nil
}

// ListByFolder はフォルダ内のアイテムを作成日時降順で返す。
func (r *PostgresItemRepo) ListByFolder(ctx context.Context, folderID string, itemType model.ItemType) ([]*model.Item, error) {
	var rows *sql.Rows
	var err error

	if itemType == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items
			 WHERE folder_id = $1 ORDER BY created_at DESC`, folderID)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items
			 WHERE folder_id = $1 AND type = $2 ORDER BY created_at DESC`, folderID, itemType)
	}
	if err != nil {
		return nil, fmt.Errorf("アイテム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListImagesByFolder はフォルダ内の画像アイテムを作成日時降順で返す。
func (r *PostgresItemRepo) ListImagesByFolder(ctx context.Context, folderID string) ([]*model.Item, error) {
	return r.ListByFolder(ctx, folderID, model.ItemTypeImage)
}

// ListImagesMissingPalette はパレット未設定の画像アイテムを古い順に最大limit件返す。
func (r *PostgresItemRepo) ListImagesMissingPalette(ctx context.Context, limit int) ([]*model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE type = $1 AND (palette IS NULL OR cardinality(palette) = 0)
		 ORDER BY created_at ASC
		 LIMIT $2`,
		model.ItemTypeImage, limit)
	if err != nil {
		return nil, fmt.Errorf("パレット未設定アイテムの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// CountAll はアイテムの総数を返す。
func (r *PostgresItemRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("アイテム数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// ReassignFolder はfromFolderID配下の全アイテムをtoFolderIDに付け替える。
func (r *PostgresItemRepo) ReassignFolder(ctx context.Context, fromFolderID, toFolderID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET folder_id = $2, updated_at = $3 WHERE folder_id = $1`,
		fromFolderID, toFolderID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("アイテムのフォルダ付け替えに失敗しました: %w", err)
	}
	return nil
}

// collectItems はrowsから全アイテムを読み取る。
func collectItems(rows *sql.Rows) ([]*model.Item, error) {
	var items []*model.Item
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("アイテム行の読み取りに失敗しました: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アイテム一覧の走査に失敗しました: %w", err)
	}
	return items, nil
}

// nullIfEmpty は空文字列をNULLとして保存するためのヘルパー。
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ ItemRepository = (*PostgresItemRepo)(nil)
