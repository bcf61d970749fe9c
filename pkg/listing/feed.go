package listing

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/martinsmeder/AI-agent-test/pkg/recency"
	"github.com/martinsmeder/AI-agent-test/pkg/text"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

// Feed は RSS/Atom フィードを候補列に変換する Extractor です。
type Feed struct {
	// Grammar は pubDate の解釈に使う日付文法です。nil の場合は RFC2822 を使います。
	Grammar recency.Grammar
	// PreferEncoded が true の場合、content:encoded を description より優先します。
	PreferEncoded bool
}

// Extract は Extractor インターフェースを満たします。
// title または link が欠けたアイテム、期間外のアイテムはエラーにせず読み飛ばします。
func (f Feed) Extract(body []byte, window recency.Window) ([]types.Candidate, error) {
	fp := gofeed.NewParser()
	parsed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("RSSフィードのパース失敗: %w", err)
	}

	grammar := f.Grammar
	if grammar == nil {
		grammar = recency.RFC2822
	}

	c := newCollector()
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		title := text.Normalize(strings.TrimSpace(item.Title))
		link := strings.TrimSpace(item.Link)
		pubDate := strings.TrimSpace(item.Published)

		if title == "" || link == "" {
			continue
		}
		if !window.InWindow(pubDate, grammar) {
			continue
		}

		c.add(types.Candidate{
			Title:    title,
			URL:      link,
			Date:     pubDate,
			Category: firstCategory(item),
			Content:  text.Normalize(f.inlineBody(item)),
		})
	}
	return c.candidates(), nil
}

// inlineBody は、アイテムに埋め込まれた本文 (暫定コンテンツ) を返します。
func (f Feed) inlineBody(item *gofeed.Item) string {
	if f.PreferEncoded && strings.TrimSpace(item.Content) != "" {
		return item.Content
	}
	return item.Description
}

func firstCategory(item *gofeed.Item) string {
	for _, c := range item.Categories {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}
