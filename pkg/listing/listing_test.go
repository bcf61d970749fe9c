package listing

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinsmeder/AI-agent-test/pkg/recency"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

// ----------------------------------------------------------------------
// 共通ヘルパー
// ----------------------------------------------------------------------

func TestCollector_FirstOccurrenceWins(t *testing.T) {
	col := newCollector()

	assert.True(t, col.add(types.Candidate{Title: "first", URL: "https://example.com/a"}))
	assert.True(t, col.add(types.Candidate{Title: "second", URL: "https://example.com/b"}))
	assert.False(t, col.add(types.Candidate{Title: "again", URL: "https://example.com/a"}))

	got := col.candidates()
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "second", got[1].Title)
	assert.True(t, col.has("https://example.com/b"))
	assert.False(t, col.has("https://example.com/c"))
}

func TestCollector_EmptyIsNotNil(t *testing.T) {
	got := newCollector().candidates()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		href    string
		want    string
		wantErr bool
	}{
		{"root_relative", "https://x.ai/news", "/news/grok", "https://x.ai/news/grok", false},
		{"absolute_href", "https://x.ai/news", "https://other.example/p", "https://other.example/p", false},
		{"relative_path", "https://example.com/blog/", "post-1", "https://example.com/blog/post-1", false},
		{"no_base", "", "https://example.com/p", "https://example.com/p", false},
		{"trims_space", "https://example.com", "  /p  ", "https://example.com/p", false},
		{"empty_href", "https://example.com", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(tt.base, tt.href)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ----------------------------------------------------------------------
// Cards
// ----------------------------------------------------------------------

const testCardsPage = `<html><body>
<article><a href="/blog/new">New &amp; shiny</a><time>10/19/2026</time></article>
<article><a href="/blog/old">Old</a><time>09/09/2026</time></article>
<article><a href="/blog/new">Duplicate</a><time>10/18/2026</time></article>
<article><span>no link</span><time>10/19/2026</time></article>
<article><a href="/blog/undated">Undated</a></article>
<article><a href="/blog/blank"> </a><time>10/19/2026</time></article>
</body></html>`

func TestCards_Extract(t *testing.T) {
	extractor := Cards{BaseURL: "https://andonlabs.com/blog", Grammar: recency.SlashDate}

	got, err := extractor.Extract([]byte(testCardsPage), recency.NewWindow(testToday, 30))
	require.NoError(t, err)
	require.Len(t, got, 1, "期間外・リンクなし・日付なし・重複はすべて除外される")

	assert.Equal(t, types.Candidate{
		Title: "New & shiny",
		URL:   "https://andonlabs.com/blog/new",
		Date:  "10/19/2026",
	}, got[0])
}

func TestCards_CustomSelectors(t *testing.T) {
	page := `<ul>
<li class="post"><a href="https://example.com/p1">P1</a><span class="when">2026-10-18</span></li>
<li class="post"><a href="https://example.com/p2">P2</a><span class="when">2026-10-01</span></li>
</ul>`
	extractor := Cards{CardSelector: "li.post", DateSelector: ".when", Grammar: recency.ISODate}

	got, err := extractor.Extract([]byte(page), recency.NewWindow(testToday, 7))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/p1", got[0].URL)
}

func TestCards_WindowDisabled(t *testing.T) {
	extractor := Cards{BaseURL: "https://andonlabs.com/blog", Grammar: recency.SlashDate}

	got, err := extractor.Extract([]byte(testCardsPage), recency.NewWindow(testToday, 0))
	require.NoError(t, err)

	urls := make([]string, 0, len(got))
	for _, c := range got {
		urls = append(urls, c.URL)
	}
	assert.Equal(t, []string{
		"https://andonlabs.com/blog/new",
		"https://andonlabs.com/blog/old",
		"https://andonlabs.com/blog/undated",
	}, urls)
}

// ----------------------------------------------------------------------
// Anchors
// ----------------------------------------------------------------------

var testNewsDatePattern = regexp.MustCompile(`\b([A-Z][a-z]+ \d{2}, \d{4})\b`)

func newsAnchors() Anchors {
	return Anchors{
		BaseURL:      "https://x.ai/news",
		HrefPattern:  regexp.MustCompile(`^/news/[^"#?]+`),
		RootPath:     "/news",
		RejectLabels: []string{"READ"},
		DatePattern:  testNewsDatePattern,
		Grammar:      recency.MonthDayYear,
	}
}

func TestAnchors_Extract(t *testing.T) {
	page := `<nav><a href="/news">News</a><a href="/company">Company</a></nav>
<div><span>October 15, 2026</span><a href="/news/grok-5">Grok 5 launch</a></div>
<div><span>August 01, 2026</span><a href="/news/old-post">Old post</a></div>
<div><a href="/news/grok-5">read</a></div>
<div><a href="/news/no-label"></a></div>`

	got, err := newsAnchors().Extract([]byte(page), recency.NewWindow(testToday, 30))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, types.Candidate{
		Title: "Grok 5 launch",
		URL:   "https://x.ai/news/grok-5",
		Date:  "October 15, 2026",
	}, got[0])
}

func TestAnchors_NearestDate(t *testing.T) {
	// アンカー "<a href="/p">T</a>" は 18 バイト
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "tie_prefers_first_found",
			page: `2026-10-10xxxxxxxx<a href="/p">T</a>2026-10-12`,
			want: "2026-10-10",
		},
		{
			name: "later_date_closer",
			page: `2026-10-10xxxxxxxxx<a href="/p">T</a>2026-10-12`,
			want: "2026-10-12",
		},
		{
			name: "earlier_date_closer",
			page: `2026-10-10xxxxxxx<a href="/p">T</a>2026-10-12`,
			want: "2026-10-10",
		},
	}

	extractor := Anchors{
		BaseURL:     "https://example.com",
		DatePattern: regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		Grammar:     recency.ISODate,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractor.Extract([]byte(tt.page), recency.NewWindow(testToday, 30))
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Date)
		})
	}
}

func TestAnchors_SearchRadius(t *testing.T) {
	page := `<p>October 15, 2026</p><div></div>` +
		`<p>padding padding padding padding padding padding</p>` +
		`<a href="/news/far">Far away</a>`

	extractor := newsAnchors()
	extractor.SearchRadius = 20

	got, err := extractor.Extract([]byte(page), recency.NewWindow(testToday, 30))
	require.NoError(t, err)
	assert.Empty(t, got, "探索範囲外の日付は対応付けない")

	extractor.SearchRadius = 0
	got, err = extractor.Extract([]byte(page), recency.NewWindow(testToday, 30))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "October 15, 2026", got[0].Date)
}

func TestAnchors_NilDatePattern(t *testing.T) {
	_, err := Anchors{}.Extract([]byte(`<a href="/x">x</a>`), recency.NewWindow(testToday, 30))
	assert.Error(t, err)
}

// ----------------------------------------------------------------------
// Works
// ----------------------------------------------------------------------

const testWorks = `{"results":[
 {"id":"https://openalex.org/W1","doi":"https://doi.org/10.1/abc","display_name":"Paper One","publication_date":"2026-10-18",
  "primary_location":{"landing_page_url":"https://journal.example/p1"},
  "best_oa_location":{"landing_page_url":"https://oa.example/p1"},
  "abstract_inverted_index":{"world":[1],"Hello":[0],"again":[3],"hello":[2]}},
 {"id":"https://openalex.org/W2","doi":"https://doi.org/10.1/def","display_name":"Paper Two","publication_date":"2026-10-17",
  "primary_location":null,"best_oa_location":{"landing_page_url":null},
  "abstract_inverted_index":{"x":[0]}},
 {"id":"https://openalex.org/W3","doi":null,"display_name":"No abstract","publication_date":"2026-10-17","abstract_inverted_index":null},
 {"id":"https://openalex.org/W4","display_name":"Old","publication_date":"2026-09-01","abstract_inverted_index":{"y":[0]}},
 {"id":"https://openalex.org/W5","doi":null,"display_name":"Only id","publication_date":"2026-10-16",
  "primary_location":{"landing_page_url":"https://journal.example/p5"},"abstract_inverted_index":{"z":[0]}},
 {"id":"https://openalex.org/W6","display_name":"","publication_date":"2026-10-16","abstract_inverted_index":{"w":[0]}},
 "broken"
]}`

func TestWorks_Extract(t *testing.T) {
	got, err := Works{}.Extract([]byte(testWorks), recency.NewWindow(testToday, 7))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, types.Candidate{
		Title:   "Paper One",
		URL:     "https://oa.example/p1",
		Date:    "2026-10-18",
		Content: "Hello world hello again",
	}, got[0])
	assert.Equal(t, "https://doi.org/10.1/def", got[1].URL, "ランディングページがなければ DOI")
	assert.Equal(t, "https://journal.example/p5", got[2].URL, "OA版がなければ主たる掲載先")
}

func TestWorks_IDFallback(t *testing.T) {
	body := `{"results":[{"id":"https://openalex.org/W9","display_name":"T","publication_date":"2026-10-19","abstract_inverted_index":{"a":[0]}}]}`

	got, err := Works{}.Extract([]byte(body), recency.NewWindow(testToday, 7))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://openalex.org/W9", got[0].URL)
}

func TestWorks_InvalidJSON(t *testing.T) {
	_, err := Works{}.Extract([]byte(`{"results": [`), recency.NewWindow(testToday, 7))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSONパース失敗")
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"nil_index", nil, ""},
		{"empty_positions", map[string][]int{"a": {}}, ""},
		{"repeated_token", map[string][]int{"the": {0, 2}, "cat": {1}, "hat": {3}}, "the cat the hat"},
		{"gap_in_positions", map[string][]int{"b": {10}, "a": {5}}, "a b"},
		{"same_position_sorted_by_token", map[string][]int{"zeta": {0}, "alpha": {0}}, "alpha zeta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReconstructAbstract(tt.index))
		})
	}
}
