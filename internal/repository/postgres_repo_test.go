package repository

import (
	"testing"

	"github.com/untld/untld/internal/model"
)

// TestPostgresItemRepo_ImplementsInterface はPostgresItemRepoがItemRepositoryを実装することを検証する。
func TestPostgresItemRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresItemRepoがItemRepositoryを満たすことを検証
	var _ ItemRepository = (*PostgresItemRepo)(nil)
}

// TestPostgresFolderRepo_ImplementsInterface はPostgresFolderRepoがFolderRepositoryを実装することを検証する。
func TestPostgresFolderRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresFolderRepoがFolderRepositoryを満たすことを検証
	var _ FolderRepository = (*PostgresFolderRepo)(nil)
}

// TestItemTypeValues はItemTypeの定数値が正しいことを検証する。
func TestItemTypeValues(t *testing.T) {
	cases := map[model.ItemType]string{
		model.ItemTypeText:  "text",
		model.ItemTypeColor: "color",
		model.ItemTypeLink:  "link",
		model.ItemTypeImage: "image",
		model.ItemTypeFont:  "font",
	}
	for typ, want := range cases {
		if string(typ) != want {
			t.Errorf("ItemType = %q, want %q", typ, want)
		}
	}
}

// TestNullIfEmpty は空文字列がNULLとして扱われることを検証する。
func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("").Valid {
		t.Error("空文字列はNULLとして保存されるべき")
	}
	ns := nullIfEmpty("value")
	if !ns.Valid || ns.String != "value" {
		t.Errorf("nullIfEmpty(\"value\") = %+v, want Valid=true String=value", ns)
	}
}

// TestPaletteArray_Empty は空パレットがNULLとして扱われることを検証する。
func TestPaletteArray_Empty(t *testing.T) {
	if paletteArray(nil) != nil {
		t.Error("nilパレットはNULLとして保存されるべき")
	}
	if paletteArray([]string{}) != nil {
		t.Error("空パレットはNULLとして保存されるべき")
	}
	if paletteArray([]string{"#FF0000"}) == nil {
		t.Error("非空パレットはNULLであってはならない")
	}
}
