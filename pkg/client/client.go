package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// ----------------------------------------------------------------------
// 定数とインターフェース
// ----------------------------------------------------------------------

const (
	// DefaultHTTPTimeout は、1リクエストあたりのデフォルトのタイムアウトです。
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultUserAgent は、取得元に名乗る固定のクライアント識別子です。
	DefaultUserAgent = "Mozilla/5.0 (compatible; DataGatherer/1.0; +https://example.local)"
)

// Doer は、標準の *http.Client.Do()と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client は httpkit.Client をラップし、固定の User-Agent とタイムアウトで取得を行います。
// リトライは httpkit.Client に任せます (既定は 0 回)。
type Client struct {
	kit        *httpkit.Client
	doer       Doer
	userAgent  string
	maxRetries uint64
}

// ----------------------------------------------------------------------
// 設定とコンストラクタ
// ----------------------------------------------------------------------

// ClientOption はClientの設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。User-Agent の付与はこの Doer の手前で行われます。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithMaxRetries は最大リトライ回数を設定します。
func WithMaxRetries(max uint64) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
	}
}

// WithUserAgent は User-Agent を差し替えます。
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New は新しいClientを初期化します。timeout が 0 以下の場合は DefaultHTTPTimeout を使います。
func New(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		doer:      &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range options {
		opt(c)
	}

	// 1. httpkit.Client を初期化
	c.kit = httpkit.New(timeout)
	// 2. User-Agent を付与する Doer とリトライ回数を httpkit.Client に適用
	httpkit.WithHTTPClient(&userAgentDoer{next: c.doer, userAgent: c.userAgent})(c.kit)
	httpkit.WithMaxRetries(c.maxRetries)(c.kit)

	return c
}

// UserAgent は送信する User-Agent を返します。
func (c *Client) UserAgent() string {
	return c.userAgent
}

// ----------------------------------------------------------------------
// httpkit メソッドの利用
// ----------------------------------------------------------------------

// FetchBytes は URL からコンテンツをフェッチし、生のバイト配列として返します。
// 非2xx応答、タイムアウト、通信エラーはいずれもエラーになります。
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	body, err := c.kit.FetchBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("URL %s の取得に失敗しました: %w", url, err)
	}
	return body, nil
}

// IsNonRetryableError は与えられたエラーが非リトライ対象のHTTPエラーであるかを判断します。
// httpkit の同名関数を呼び出します。
func IsNonRetryableError(err error) bool {
	return httpkit.IsNonRetryableError(err)
}

// userAgentDoer は、すべてのリクエストに固定の User-Agent を付与して次の Doer へ渡します。
type userAgentDoer struct {
	next      Doer
	userAgent string
}

func (d *userAgentDoer) Do(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", d.userAgent)
	return d.next.Do(req)
}
