package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/untld/untld/internal/model"
)

// PostgresFolderRepo はPostgreSQLを使用したフォルダリポジトリ。
type PostgresFolderRepo struct {
	db *sql.DB
}

// NewPostgresFolderRepo はPostgresFolderRepoを生成する。
func NewPostgresFolderRepo(db *sql.DB) *PostgresFolderRepo {
	return &PostgresFolderRepo{db: db}
}

// FindByID は指定IDのフォルダを取得する。見つからない場合はnilを返す。
func (r *PostgresFolderRepo) FindByID(ctx context.Context, id string) (*model.Folder, error) {
	folder := &model.Folder{}
	var magicPalette pq.StringArray

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, color, magic_palette, created_at, updated_at
		 FROM folders WHERE id = $1`,
		id,
	).Scan(&folder.ID, &folder.Name, &folder.Color, &magicPalette, &folder.CreatedAt, &folder.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フォルダの取得に失敗しました: %w", err)
	}

	folder.MagicPalette = []string(magicPalette)
	return folder, nil
}

// List は全フォルダをアイテム数付きで作成日時昇順で返す。
func (r *PostgresFolderRepo) List(ctx context.Context) ([]model.FolderWithCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.id, f.name, f.color, f.magic_palette, f.created_at, f.updated_at,
		        COUNT(i.id) AS item_count
		 FROM folders f
		 LEFT JOIN items i ON i.folder_id = f.id
		 GROUP BY f.id
		 ORDER BY f.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("フォルダ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var folders []model.FolderWithCount
	for rows.Next() {
		var fc model.FolderWithCount
		var magicPalette pq.StringArray
		if err := rows.Scan(&fc.ID, &fc.Name, &fc.Color, &magicPalette, &fc.CreatedAt, &fc.UpdatedAt, &fc.ItemCount); err != nil {
			return nil, fmt.Errorf("フォルダ行の読み取りに失敗しました: %w", err)
		}
		fc.MagicPalette = []string(magicPalette)
		folders = append(folders, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォルダ一覧の走査に失敗しました: %w", err)
	}

	return folders, nil
}

// Create はフォルダを作成する。
func (r *PostgresFolderRepo) Create(ctx context.Context, folder *model.Folder) error {
	now := time.Now().UTC()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO folders (id, name, color, magic_palette, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		folder.ID, folder.Name, folder.Color, paletteArray(folder.MagicPalette),
		folder.CreatedAt, folder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("フォルダの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はフォルダの名前とアクセントカラーを更新する。
func (r *PostgresFolderRepo) Update(ctx context.Context, folder *model.Folder) error {
	folder.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE folders SET name = $2, color = $3, updated_at = $4 WHERE id = $1`,
		folder.ID, folder.Name, folder.Color, folder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("フォルダの更新に失敗しました: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("更新対象のフォルダが存在しません: %s", folder.ID)
	}
	return nil
}

// UpdateMagicPalette はフォルダのマジックパレットを上書きする。
func (r *PostgresFolderRepo) UpdateMagicPalette(ctx context.Context, folderID string, palette []string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE folders SET magic_palette = $2, updated_at = $3 WHERE id = $1`,
		folderID, paletteArray(palette), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("マジックパレットの更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのフォルダを削除する。
func (r *PostgresFolderRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("フォルダの削除に失敗しました: %w", err)
	}
	return nil
}

// paletteArray は空スライスをNULLとして保存するためのヘルパー。
// 「パレット未生成」と「空パレット」をDB上で区別しない。
func paletteArray(palette []string) interface{} {
	if len(palette) == 0 {
		return nil
	}
	return pq.Array(palette)
}

// compile-time interface check
var _ FolderRepository = (*PostgresFolderRepo)(nil)
