package cmd

import (
	"fmt"
	"net/url"
	"strings"
)

// normalizeArticleURL は、extract に渡された記事URLを検証します。
// スキームがなければ https:// を補完し、http / https 以外のスキームとホスト名のないURLは受け付けません。
func normalizeArticleURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("記事URLが空です")
	}

	// 1. スキームの補完 ("localhost:8080/post" のような host:port 形式もホスト名として扱う)
	candidate := rawURL
	if !strings.Contains(rawURL, "://") {
		candidate = "https://" + rawURL
	}

	// 2. パースと検証
	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("記事URLのパースエラー (%s): %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %s", rawURL)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("記事URLにホスト名がありません: %s", rawURL)
	}
	return candidate, nil
}
