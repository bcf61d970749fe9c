package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/martinsmeder/AI-agent-test/pkg/text"
)

// ----------------------------------------------------------------------
// 定数定義
// ----------------------------------------------------------------------
const (
	// invisibleSelectors は本文にならない要素です。開始タグから終了タグまで丸ごと除去します。
	invisibleSelectors = "script, style, noscript, svg, template"
	footerSelector     = "footer"
	// defaultMarkerMinOffset は、ナビゲーション文言で切り詰めるときの最小位置です。先頭一致では切り詰めません。
	defaultMarkerMinOffset = 1
)

// Region は本文領域の候補を表します。
type Region struct {
	// Selector は候補要素のセレクタです。最初に一致した要素を使います。
	Selector string
	// Enclosing が空でない場合、一致した要素自身を含む最も近い祖先のうちこのセレクタに一致するものへ広げます。
	Enclosing string
}

var (
	// ProseRegion は class 属性が "prose" で始まる要素を、それを囲む最も近い div へ広げた領域です。
	ProseRegion = Region{Selector: `[class^="prose"]`, Enclosing: "div"}
	// ArticleRegion は article 要素です。
	ArticleRegion = Region{Selector: "article"}
	// MainRegion は main 要素です。
	MainRegion = Region{Selector: "main"}
)

// Options は Extractor の抽出方針です。
type Options struct {
	// Regions は本文領域の候補を優先順に並べたものです。どれにも一致しなければ body 全体を使います。
	Regions []Region
	// TrimFooter が true の場合、領域内の最初の footer 以降を捨てます。
	TrimFooter bool
	// ChromeMarkers は本文の後ろに続くナビゲーション文言です。列挙順に探し、最初に見つかった位置で切り詰めます。
	ChromeMarkers []string
	// MarkerMinOffset より前で見つかった文言では切り詰めません。0 以下なら 1。
	MarkerMinOffset int
	// MinLength より短い結果は「使える本文なし」として空文字列にします。0 なら判定しません。
	MinLength int
}

// Extractor は、記事ページから本文テキストを抽出します。
type Extractor struct {
	opts Options
}

// New は、新しい Extractor のインスタンスを生成します。
func New(opts Options) *Extractor {
	if opts.MarkerMinOffset <= 0 {
		opts.MarkerMinOffset = defaultMarkerMinOffset
	}
	return &Extractor{opts: opts}
}

// ----------------------------------------------------------------------
// メイン関数
// ----------------------------------------------------------------------

// Extract は ContentExtractor インターフェースを満たします。
func (e *Extractor) Extract(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return e.finish(text.Normalize(string(body)))
	}

	// 1. 本文領域の特定
	region := e.findRegion(doc)

	// 2. フッター以降の除去
	if e.opts.TrimFooter {
		trimFooter(region)
	}

	// 3. 非表示要素とコメントの除去
	region.Find(invisibleSelectors).Remove()
	region.Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			removeComments(n)
		}
	})

	// 4. 正規化
	rendered, err := goquery.OuterHtml(region)
	if err != nil {
		return ""
	}
	return e.finish(text.Normalize(rendered))
}

// findRegion は、優先順に本文領域の候補を探します。
func (e *Extractor) findRegion(doc *goquery.Document) *goquery.Selection {
	for _, r := range e.opts.Regions {
		found := doc.Find(r.Selector).First()
		if found.Length() == 0 {
			continue
		}
		if r.Enclosing != "" {
			if enclosing := found.Closest(r.Enclosing); enclosing.Length() > 0 {
				found = enclosing
			}
		}
		return found
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// trimFooter は、領域内の最初の footer とそれ以降の文書順の兄弟要素をすべて取り除きます。
func trimFooter(region *goquery.Selection) {
	footer := region.Find(footerSelector).First()
	if footer.Length() == 0 {
		return
	}
	footer.NextAll().Remove()
	footer.ParentsUntilSelection(region).Each(func(_ int, parent *goquery.Selection) {
		parent.NextAll().Remove()
	})
	footer.Remove()
}

// removeComments は、ノード以下のコメントノードを再帰的に取り除きます。
func removeComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			removeComments(c)
		}
		c = next
	}
}

// finish は、ナビゲーション文言の切り詰めと最小長の判定を行います。
func (e *Extractor) finish(content string) string {
	for _, marker := range e.opts.ChromeMarkers {
		if idx := strings.Index(content, marker); idx >= e.opts.MarkerMinOffset {
			content = strings.TrimSpace(content[:idx])
			break
		}
	}

	if e.opts.MinLength > 0 && len([]rune(content)) < e.opts.MinLength {
		return ""
	}
	return content
}
