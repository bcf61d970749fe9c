package listing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/martinsmeder/AI-agent-test/pkg/recency"
	"github.com/martinsmeder/AI-agent-test/pkg/text"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

// DefaultSearchRadius は、アンカー位置から日付を探す範囲 (前後のバイト数) です。
const DefaultSearchRadius = 1200

// Anchors は、リンクと日付が同じ要素に収まっていない一覧ページ用の Extractor です。
// トークナイザでページを走査し、アンカーの開始位置に最も近い日付トークンを対応付けます。
// 距離が同じ場合は先に見つかった日付を採用します。
type Anchors struct {
	BaseURL      string          // 相対リンクの解決に使うベースURL
	HrefPattern  *regexp.Regexp  // 記事リンクとみなす href のパターン
	RootPath     string          // 一覧ページ自身のパス (ナビゲーションとして除外)
	RejectLabels []string        // 記事ではないリンク文言 (大文字小文字を区別しない)
	DatePattern  *regexp.Regexp  // 日付らしいトークンのパターン (最初のグループを日付とする)
	SearchRadius int             // 日付を探す範囲。0 以下なら DefaultSearchRadius
	Grammar      recency.Grammar // 日付文法
}

// anchorHit は走査中に見つかったアンカーです。
type anchorHit struct {
	offset int
	href   string
	label  string
}

// dateHit は走査中に見つかった日付トークンです。
type dateHit struct {
	start int
	end   int
	value string
}

// Extract は Extractor インターフェースを満たします。
func (a Anchors) Extract(body []byte, window recency.Window) ([]types.Candidate, error) {
	if a.DatePattern == nil {
		return nil, fmt.Errorf("listing.Anchors: DatePattern cannot be nil")
	}

	anchors, dates, err := a.scan(body)
	if err != nil {
		return nil, err
	}

	col := newCollector()
	for _, hit := range anchors {
		if a.isChrome(hit) {
			continue
		}
		absURL, err := ResolveURL(a.BaseURL, hit.href)
		if err != nil || col.has(absURL) {
			continue
		}

		date := a.nearestDate(dates, hit.offset)
		if date == "" || !window.InWindow(date, a.Grammar) {
			continue
		}

		col.add(types.Candidate{Title: hit.label, URL: absURL, Date: date})
	}
	return col.candidates(), nil
}

// scan は HTML をトークン単位で走査し、アンカーと日付トークンをバイト位置付きで集めます。
func (a Anchors) scan(body []byte) ([]anchorHit, []dateHit, error) {
	z := html.NewTokenizer(bytes.NewReader(body))

	var (
		anchors []anchorHit
		dates   []dateHit
		current *anchorHit
		label   strings.Builder
		offset  int
	)

	for {
		tt := z.Next()
		raw := z.Raw()
		tokenStart := offset
		offset += len(raw)

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return anchors, dates, nil
			}
			return nil, nil, fmt.Errorf("HTMLの走査に失敗しました: %w", z.Err())

		case html.TextToken:
			for _, m := range a.DatePattern.FindAllSubmatchIndex(raw, -1) {
				start, end := m[0], m[1]
				if len(m) >= 4 && m[2] >= 0 {
					start, end = m[2], m[3]
				}
				dates = append(dates, dateHit{
					start: tokenStart + start,
					end:   tokenStart + end,
					value: string(raw[start:end]),
				})
			}
			if current != nil {
				label.Write(raw)
			}

		case html.StartTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			href, ok := attr(tok, "href")
			if !ok || !a.matchesHref(href) {
				current = nil
				continue
			}
			current = &anchorHit{offset: tokenStart, href: strings.TrimSpace(href)}
			label.Reset()

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "a" && current != nil {
				current.label = text.Collapse(html.UnescapeString(label.String()))
				anchors = append(anchors, *current)
				current = nil
			}
		}
	}
}

// matchesHref は、href が記事リンクのパターンに一致するかを判定します。
func (a Anchors) matchesHref(href string) bool {
	if a.HrefPattern == nil {
		return true
	}
	return a.HrefPattern.MatchString(strings.TrimSpace(href))
}

// isChrome は、ナビゲーション等の記事ではないアンカーかどうかを判定します。
func (a Anchors) isChrome(hit anchorHit) bool {
	if hit.label == "" {
		return true
	}
	if a.RootPath != "" && strings.TrimRight(hit.href, "/") == strings.TrimRight(a.RootPath, "/") {
		return true
	}
	for _, l := range a.RejectLabels {
		if strings.EqualFold(hit.label, l) {
			return true
		}
	}
	return false
}

// nearestDate は、アンカー位置から SearchRadius 以内にある日付のうち最も近いものを返します。
func (a Anchors) nearestDate(dates []dateHit, anchorOffset int) string {
	radius := a.SearchRadius
	if radius <= 0 {
		radius = DefaultSearchRadius
	}
	lo, hi := anchorOffset-radius, anchorOffset+radius

	best := ""
	bestDistance := -1
	for _, d := range dates {
		if d.start < lo || d.end > hi {
			continue
		}
		distance := d.start - anchorOffset
		if distance < 0 {
			distance = -distance
		}
		if bestDistance < 0 || distance < bestDistance {
			best, bestDistance = d.value, distance
		}
	}
	return best
}

func attr(tok html.Token, key string) (string, bool) {
	for _, at := range tok.Attr {
		if at.Key == key {
			return at.Val, true
		}
	}
	return "", false
}
