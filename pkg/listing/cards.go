package listing

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/martinsmeder/AI-agent-test/pkg/recency"
	"github.com/martinsmeder/AI-agent-test/pkg/text"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

const (
	defaultCardSelector = "article"
	defaultDateSelector = "time"
)

// Cards は、「記事カード」(リンクと日付を内包する要素) を並べた HTML 一覧ページ用の Extractor です。
// カード内の最初の a[href] をリンクとタイトル、最初の日付要素を日付として扱います。
type Cards struct {
	BaseURL      string          // 相対リンクの解決に使うベースURL
	CardSelector string          // カード要素 (既定: article)
	DateSelector string          // カード内の日付要素 (既定: time)
	Grammar      recency.Grammar // 日付文法
}

// Extract は Extractor インターフェースを満たします。
func (c Cards) Extract(body []byte, window recency.Window) ([]types.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}

	cardSelector := orDefault(c.CardSelector, defaultCardSelector)
	dateSelector := orDefault(c.DateSelector, defaultDateSelector)

	col := newCollector()
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		title := text.Collapse(link.Text())
		if title == "" {
			return
		}

		absURL, err := ResolveURL(c.BaseURL, href)
		if err != nil {
			return
		}

		date := text.Collapse(card.Find(dateSelector).First().Text())
		if !window.InWindow(date, c.Grammar) {
			return
		}

		col.add(types.Candidate{Title: title, URL: absURL, Date: date})
	})

	return col.candidates(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
