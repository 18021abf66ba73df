// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, item, folder, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidInput           = "INVALID_INPUT"
	ErrCodeItemNotFound           = "ITEM_NOT_FOUND"
	ErrCodeFolderNotFound         = "FOLDER_NOT_FOUND"
	ErrCodeLimitExceeded          = "LIMIT_EXCEEDED"
	ErrCodeDefaultFolderProtected = "DEFAULT_FOLDER_PROTECTED"
	ErrCodeRateLimited            = "RATE_LIMITED"
)

// NewInvalidInputError は無効な入力エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("無効な入力です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定されたアイテムが見つかりません: %s", itemID),
		Category: "item",
		Action:   "アイテムIDを確認してください。",
	}
}

// NewFolderNotFoundError はフォルダ未検出エラーを生成する。
func NewFolderNotFoundError(folderID string) *APIError {
	return &APIError{
		Code:     ErrCodeFolderNotFound,
		Message:  fmt.Sprintf("指定されたフォルダが見つかりません: %s", folderID),
		Category: "folder",
		Action:   "フォルダIDを確認してください。",
	}
}

// NewLimitExceededError はアイテム数上限エラーを生成する。
// 分類・保存パスで唯一、劣化継続ではなく拒否を返すケース。
func NewLimitExceededError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeLimitExceeded,
		Message:  fmt.Sprintf("アイテム数が上限（%d件）に達しています。", limit),
		Category: "item",
		Action:   "不要なアイテムを削除してから追加してください。",
	}
}

// NewDefaultFolderProtectedError はデフォルトフォルダ削除エラーを生成する。
func NewDefaultFolderProtectedError() *APIError {
	return &APIError{
		Code:     ErrCodeDefaultFolderProtected,
		Message:  "デフォルトフォルダは削除できません。",
		Category: "folder",
		Action:   "別のフォルダを指定してください。",
	}
}
