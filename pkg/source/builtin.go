package source

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/martinsmeder/AI-agent-test/pkg/extract"
	"github.com/martinsmeder/AI-agent-test/pkg/listing"
	"github.com/martinsmeder/AI-agent-test/pkg/recency"
)

// ---- 取得元の識別名 ----
const (
	AndonLabs        = "andon_labs"
	AnthropicNews    = "anthropic_news"
	DeepMindBlog     = "deepmind_blog"
	TechnologyReview = "technologyreview"
	OpenAlex         = "openalex"
	XAINews          = "xai_news"
)

// ---- 取得元ごとの定数 ----
const (
	anthropicFeedURL = "https://raw.githubusercontent.com/Olshansk/rss-feeds/main/feeds/feed_anthropic_news.xml"
	// anthropicMinContentLength より短い抽出結果はフィードの description を残します。
	anthropicMinContentLength = 40

	openAlexSearchQuery = "artificial intelligence"
	openAlexPerPage     = 200
)

var (
	xaiHrefPattern = regexp.MustCompile(`^/news/[^"#?]+$`)
	xaiDatePattern = regexp.MustCompile(`\b([A-Z][a-z]+ \d{2}, \d{4})\b`)
	xaiChrome      = []string{"Try Grok On", "Products", "Resources", "Privacy policy"}
)

// Builtins は組み込みの取得元を、出力順に返します。
func Builtins() []Spec {
	return []Spec{
		{
			Name:       AndonLabs,
			BaseName:   "andon_labs_blog",
			ListingURL: "https://andonlabs.com/blog",
			WindowDays: 30,
			Strategy:   "html-cards",
			Mode:       FetchRequired,
			NewListing: func(listingURL string) listing.Extractor {
				return listing.Cards{BaseURL: listingURL, Grammar: recency.SlashDate}
			},
			Content: extract.New(extract.Options{
				Regions:    []extract.Region{extract.ProseRegion},
				TrimFooter: true,
			}),
		},
		{
			Name:       AnthropicNews,
			BaseName:   "anthropic_news_feed",
			ListingURL: anthropicFeedURL,
			WindowDays: 30,
			Strategy:   "rss",
			Mode:       FetchUpgrade,
			NewListing: func(string) listing.Extractor {
				return listing.Feed{Grammar: recency.RFC2822}
			},
			Content: extract.New(extract.Options{
				Regions:   []extract.Region{extract.ArticleRegion, extract.MainRegion},
				MinLength: anthropicMinContentLength,
			}),
		},
		{
			Name:       DeepMindBlog,
			BaseName:   "deepmind_blog_feed",
			ListingURL: "https://deepmind.google/blog/rss.xml",
			WindowDays: 30,
			Strategy:   "rss",
			Mode:       FetchNone,
			NewListing: func(string) listing.Extractor {
				return listing.Feed{Grammar: recency.RFC2822}
			},
		},
		{
			Name:       TechnologyReview,
			BaseName:   "technologyreview_feed",
			ListingURL: "https://www.technologyreview.com/feed/",
			WindowDays: 0,
			Strategy:   "rss (content:encoded)",
			Mode:       FetchNone,
			NewListing: func(string) listing.Extractor {
				return listing.Feed{Grammar: recency.RFC2822, PreferEncoded: true}
			},
		},
		{
			Name:       OpenAlex,
			BaseName:   "openalex_api",
			ListingURL: "https://api.openalex.org/works",
			WindowDays: 7,
			Strategy:   "json-works",
			Mode:       FetchNone,
			NewListing: func(string) listing.Extractor {
				return listing.Works{Grammar: recency.ISODate}
			},
			Query: OpenAlexQuery,
		},
		{
			Name:       XAINews,
			BaseName:   "xai_news_feed",
			ListingURL: "https://x.ai/news",
			WindowDays: 30,
			Strategy:   "html-anchors",
			Mode:       FetchRequired,
			NewListing: func(listingURL string) listing.Extractor {
				return listing.Anchors{
					BaseURL:      listingURL,
					HrefPattern:  xaiHrefPattern,
					RootPath:     "/news",
					RejectLabels: []string{"READ"},
					DatePattern:  xaiDatePattern,
					SearchRadius: listing.DefaultSearchRadius,
					Grammar:      recency.MonthDayYear,
				}
			},
			Content: extract.New(extract.Options{
				Regions:       []extract.Region{extract.ArticleRegion, extract.MainRegion},
				ChromeMarkers: xaiChrome,
			}),
		},
	}
}

// Lookup は識別名から組み込みの取得元を探します。
func Lookup(name string) (Spec, bool) {
	for _, spec := range Builtins() {
		if spec.Name == name {
			return spec, true
		}
	}
	return Spec{}, false
}

// Names は組み込みの取得元の識別名を出力順に返します。
func Names() []string {
	specs := Builtins()
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return names
}

// OpenAlexQuery は、検索語と期間 (出版日の範囲) を付けた /works のリクエストURLを組み立てます。
// 期間が無効な場合は出版日で絞り込みません。
func OpenAlexQuery(listingURL string, window recency.Window) (string, error) {
	u, err := url.Parse(listingURL)
	if err != nil {
		return "", fmt.Errorf("一覧URLのパースエラー (%s): %w", listingURL, err)
	}

	q := u.Query()
	q.Set("search", openAlexSearchQuery)
	if window.Enabled() {
		q.Set("filter", fmt.Sprintf("from_publication_date:%s,to_publication_date:%s",
			window.Start().Format("2006-01-02"), window.Today().Format("2006-01-02")))
	}
	q.Set("sort", "publication_date:desc")
	q.Set("per-page", fmt.Sprint(openAlexPerPage))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
