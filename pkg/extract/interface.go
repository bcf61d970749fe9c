package extract

import (
	"context"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Fetcher は、URL から生のバイト配列を取得する機能のインターフェースを定義します。
// 記事本文の取得はこの抽象に依存します。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ContentExtractor は、記事ページの生データから本文テキストを取り出す機能のインターフェースです。
// 使える本文がない場合は空文字列を返し、エラーにはしません。
type ContentExtractor interface {
	Extract(body []byte) string
}
