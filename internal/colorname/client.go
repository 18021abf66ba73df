// Package colorname はThe Color API連携による色名解決を提供する。
package colorname

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// defaultEndpoint はThe Color APIの色情報エンドポイント。
const defaultEndpoint = "https://www.thecolorapi.com/id"

// UnnamedColor は色名が解決できなかった場合のフォールバック名。
const UnnamedColor = "Unnamed Color"

// Client はThe Color APIのクライアント。
// 16進カラーコードから人間可読な色名を取得する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// endpointが空文字の場合はデフォルトエンドポイントを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
	}
}

// colorAPIResponse はThe Color APIのレスポンスのうち利用する部分。
type colorAPIResponse struct {
	Name struct {
		Value string `json:"value"`
	} `json:"name"`
}

// GetColorName は16進カラーコード（#RRGGBB形式）の色名を取得する。
// 取得失敗時はエラーを返す（呼び出し元がフォールバック名を判断する）。
func (c *Client) GetColorName(ctx context.Context, hex string) (string, error) {
	// APIには#なしの16進値を渡す
	hexValue := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if hexValue == "" {
		return "", fmt.Errorf("カラーコードが空です")
	}

	// リクエストURL構築
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("hex", hexValue)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Untld/1.0 Moodboard")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("The Color APIの呼び出しに失敗しました",
			slog.String("hex", hex),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("The Color APIがエラーステータスを返しました",
			slog.String("hex", hex),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("The Color APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result colorAPIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn("The Color APIのレスポンスのパースに失敗しました",
			slog.String("hex", hex),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	name := strings.TrimSpace(result.Name.Value)
	if name == "" {
		return "", fmt.Errorf("色名がレスポンスに含まれていません")
	}

	return name, nil
}
