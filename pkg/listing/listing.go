package listing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/martinsmeder/AI-agent-test/pkg/recency"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

// ----------------------------------------------------------------------
// 依存性の定義
// ----------------------------------------------------------------------

// Extractor は、一覧ページの生データから候補記事の列を取り出す機能のインターフェースです。
// 入力だけに依存する純粋な処理で、何度呼び出しても同じ結果になります。
type Extractor interface {
	Extract(body []byte, window recency.Window) ([]types.Candidate, error)
}

// ----------------------------------------------------------------------
// 共通ヘルパー
// ----------------------------------------------------------------------

// collector は URL をキーに候補を重複排除し、最初に見つかった順序を保ちます。
// 一覧ページは新しい順に並んでいる前提のため、並べ替えは行いません。
type collector struct {
	seen map[string]struct{}
	out  []types.Candidate
}

func newCollector() *collector {
	return &collector{seen: make(map[string]struct{})}
}

// add は候補を追加します。同じ URL が既にあれば何もせず false を返します。
func (c *collector) add(candidate types.Candidate) bool {
	if _, ok := c.seen[candidate.URL]; ok {
		return false
	}
	c.seen[candidate.URL] = struct{}{}
	c.out = append(c.out, candidate)
	return true
}

func (c *collector) has(u string) bool {
	_, ok := c.seen[u]
	return ok
}

func (c *collector) candidates() []types.Candidate {
	if c.out == nil {
		return []types.Candidate{}
	}
	return c.out
}

// ResolveURL は、href を取得元のベースURLに対して絶対URLへ解決します。
func ResolveURL(baseURL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("空のhrefは解決できません")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("hrefのパースエラー (%s): %w", href, err)
	}
	if baseURL == "" {
		return ref.String(), nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("ベースURLのパースエラー (%s): %w", baseURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}
