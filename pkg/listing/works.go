package listing

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/martinsmeder/AI-agent-test/pkg/recency"
	"github.com/martinsmeder/AI-agent-test/pkg/text"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

// Works は、学術文献 API (OpenAlex の /works 形式) の JSON を候補列に変換する Extractor です。
// 抄録は転置インデックス (単語 → 出現位置) から復元し、候補の暫定コンテンツとします。
// タイトル・URL・抄録のいずれかが欠けた文献は読み飛ばします。
type Works struct {
	// Grammar は publication_date の解釈に使う日付文法です。nil の場合は ISODate を使います。
	Grammar recency.Grammar
}

type worksPayload struct {
	Results []json.RawMessage `json:"results"`
}

type workLocation struct {
	LandingPageURL string `json:"landing_page_url"`
}

type work struct {
	ID                    string           `json:"id"`
	DOI                   string           `json:"doi"`
	DisplayName           string           `json:"display_name"`
	PublicationDate       string           `json:"publication_date"`
	PrimaryLocation       *workLocation    `json:"primary_location"`
	BestOALocation        *workLocation    `json:"best_oa_location"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// Extract は Extractor インターフェースを満たします。
// 個々の文献の形式が崩れている場合は、その文献だけを読み飛ばします。
func (w Works) Extract(body []byte, window recency.Window) ([]types.Candidate, error) {
	var payload worksPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("APIレスポンスのJSONパース失敗: %w", err)
	}

	grammar := w.Grammar
	if grammar == nil {
		grammar = recency.ISODate
	}

	col := newCollector()
	for _, raw := range payload.Results {
		var item work
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}

		title := text.Collapse(item.DisplayName)
		published := text.Collapse(item.PublicationDate)
		entryURL := text.Collapse(item.landingURL())
		abstract := ReconstructAbstract(item.AbstractInvertedIndex)

		if title == "" || entryURL == "" || abstract == "" {
			continue
		}
		if !window.InWindow(published, grammar) {
			continue
		}

		col.add(types.Candidate{
			Title:   title,
			URL:     entryURL,
			Date:    published,
			Content: abstract,
		})
	}
	return col.candidates(), nil
}

// landingURL は、OA版のランディングページ → 主たる掲載先 → DOI → ID の順で最初に得られたURLを返します。
func (w work) landingURL() string {
	if w.BestOALocation != nil && strings.TrimSpace(w.BestOALocation.LandingPageURL) != "" {
		return w.BestOALocation.LandingPageURL
	}
	if w.PrimaryLocation != nil && strings.TrimSpace(w.PrimaryLocation.LandingPageURL) != "" {
		return w.PrimaryLocation.LandingPageURL
	}
	if strings.TrimSpace(w.DOI) != "" {
		return w.DOI
	}
	return w.ID
}

// ReconstructAbstract は、転置インデックスから抄録の本文を復元します。
// 単語を出現位置の昇順に並べ、半角スペースで連結します。
func ReconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}

	type positioned struct {
		pos   int
		token string
	}
	var tokens []positioned
	for token, positions := range index {
		for _, pos := range positions {
			tokens = append(tokens, positioned{pos: pos, token: token})
		}
	}
	if len(tokens) == 0 {
		return ""
	}

	// 同じ位置に複数の単語がある壊れた入力でも結果が一定になるよう、単語でも比較する
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].pos != tokens[j].pos {
			return tokens[i].pos < tokens[j].pos
		}
		return tokens[i].token < tokens[j].token
	})

	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.token
	}
	return text.Collapse(strings.Join(words, " "))
}
