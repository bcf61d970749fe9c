package source

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/martinsmeder/AI-agent-test/internal/logger"
	"github.com/martinsmeder/AI-agent-test/pkg/recency"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

// ======================================================================
// モック (Mock) の定義
// ======================================================================

// MockFetcher は URL ごとに決まった応答を返す extract.Fetcher の実装です。
type MockFetcher struct {
	mu       sync.Mutex
	bodies   map[string]string
	failures map[string]error
	calls    []string
}

func (m *MockFetcher) FetchBytes(ctx context.Context, u string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, u)
	m.mu.Unlock()

	if err, ok := m.failures[u]; ok {
		return nil, err
	}
	body, ok := m.bodies[u]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return []byte(body), nil
}

// MockObserver は ItemObserver のモックです。
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) ItemFetchFailed(source string) {
	m.Called(source)
}

var testToday = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

func mustSpec(t *testing.T, name string) Spec {
	t.Helper()
	spec, ok := Lookup(name)
	require.True(t, ok, "組み込みの取得元 %s が見つかりません", name)
	return spec
}

const deepmindFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>DeepMind</title>
<item><title>Gemini update</title><link>https://deepmind.google/blog/gemini</link>
<pubDate>Sat, 17 Oct 2026 10:00:00 +0000</pubDate><description>&lt;p&gt;New model&lt;/p&gt;</description></item>
<item><title>Old news</title><link>https://deepmind.google/blog/old</link>
<pubDate>Mon, 01 Jun 2026 10:00:00 +0000</pubDate><description>old</description></item>
</channel></rss>`

// ======================================================================
// テスト関数
// ======================================================================

func TestNew_Validation(t *testing.T) {
	fetcher := &MockFetcher{}

	t.Run("nil_fetcher", func(t *testing.T) {
		_, err := New(mustSpec(t, DeepMindBlog), Options{})
		assert.Error(t, err)
	})
	t.Run("missing_content_extractor", func(t *testing.T) {
		spec := mustSpec(t, XAINews)
		spec.Content = nil
		_, err := New(spec, Options{Fetcher: fetcher})
		assert.Error(t, err)
	})
	t.Run("missing_listing", func(t *testing.T) {
		spec := mustSpec(t, DeepMindBlog)
		spec.NewListing = nil
		_, err := New(spec, Options{Fetcher: fetcher})
		assert.Error(t, err)
	})
	t.Run("metadata", func(t *testing.T) {
		s, err := New(mustSpec(t, DeepMindBlog), Options{Fetcher: fetcher, Today: testToday})
		require.NoError(t, err)
		assert.Equal(t, DeepMindBlog, s.Name())
		assert.Equal(t, "deepmind_blog_feed", s.BaseName())
		assert.Equal(t, []string{"title", "url", "date", "content"}, s.Fields())
		assert.Equal(t, 30, s.Window().Days())
	})
}

func TestRun_FeedWithoutItemFetch(t *testing.T) {
	spec := mustSpec(t, DeepMindBlog)
	fetcher := &MockFetcher{bodies: map[string]string{spec.ListingURL: deepmindFeed}}

	s, err := New(spec, Options{Fetcher: fetcher, Today: testToday})
	require.NoError(t, err)

	records, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Record{{
		Title:   "Gemini update",
		URL:     "https://deepmind.google/blog/gemini",
		Date:    "Sat, 17 Oct 2026 10:00:00 +0000",
		Content: "New model",
	}}, records)
	assert.Equal(t, []string{spec.ListingURL}, fetcher.calls, "記事ページは取得しない")
}

func TestRun_NoItemsFound(t *testing.T) {
	spec := mustSpec(t, DeepMindBlog)
	fetcher := &MockFetcher{bodies: map[string]string{
		spec.ListingURL: `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title></channel></rss>`,
	}}

	s, err := New(spec, Options{Fetcher: fetcher, Today: testToday})
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoItemsFound)

	var notFound *NoItemsFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, DeepMindBlog, notFound.Source)
	assert.Contains(t, notFound.Reason, "30")
}

func TestRun_ListingFetchError(t *testing.T) {
	spec := mustSpec(t, DeepMindBlog)
	fetcher := &MockFetcher{failures: map[string]error{spec.ListingURL: context.DeadlineExceeded}}

	s, err := New(spec, Options{Fetcher: fetcher, Today: testToday})
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrNoItemsFound)
	assert.Contains(t, err.Error(), DeepMindBlog)
}

const andonListing = `<html><body>
<article><a href="/blog/first">First post</a><time>10/19/2026</time></article>
<article><a href="/blog/second">Second post</a><time>10/02/2026</time></article>
<article><a href="/blog/ancient">Ancient post</a><time>09/09/2026</time></article>
</body></html>`

func TestRun_RequiredItemFetch(t *testing.T) {
	spec := mustSpec(t, AndonLabs)
	newFetcher := func() *MockFetcher {
		return &MockFetcher{
			bodies: map[string]string{
				spec.ListingURL: andonListing,
				"https://andonlabs.com/blog/first": `<html><body><nav>Menu</nav><div class="post">` +
					`<div class="prose max-w-none"><p>First body</p></div></div><footer>Footer</footer></body></html>`,
			},
			failures: map[string]error{
				"https://andonlabs.com/blog/second": errors.New("timeout"),
			},
		}
	}

	t.Run("degrades_on_item_failure", func(t *testing.T) {
		observer := new(MockObserver)
		observer.On("ItemFetchFailed", AndonLabs).Return().Once()

		var logBuf bytes.Buffer
		logger.SetOutput(&logBuf)
		t.Cleanup(func() { logger.SetOutput(os.Stderr) })

		s, err := New(spec, Options{Fetcher: newFetcher(), Today: testToday, ItemConcurrency: 2, Observer: observer})
		require.NoError(t, err)

		records, err := s.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "https://andonlabs.com/blog/first", records[0].URL)
		assert.Equal(t, "First body", records[0].Content)
		assert.Equal(t, "https://andonlabs.com/blog/second", records[1].URL)
		assert.Equal(t, "", records[1].Content, "取得に失敗した記事は本文なしで残す")
		observer.AssertExpectations(t)

		// 通信エラーは再試行で回復しうる失敗として記録する
		assert.Contains(t, logBuf.String(), "permanent=false")
		assert.Contains(t, logBuf.String(), "level=warning")
	})

	t.Run("strict_aborts_source", func(t *testing.T) {
		s, err := New(spec, Options{Fetcher: newFetcher(), Today: testToday, StrictItemFetch: true})
		require.NoError(t, err)

		records, err := s.Run(context.Background())
		require.Error(t, err)
		assert.Nil(t, records)
		assert.Contains(t, err.Error(), "https://andonlabs.com/blog/second")
	})
}

const anthropicFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Anthropic</title>
<item><title>Long article</title><link>https://www.anthropic.com/news/long</link>
<pubDate>Fri, 16 Oct 2026 09:00:00 +0000</pubDate><description>Feed summary one</description></item>
<item><title>Short article</title><link>https://www.anthropic.com/news/short</link>
<pubDate>Thu, 15 Oct 2026 09:00:00 +0000</pubDate><description>Feed summary two</description></item>
<item><title>Broken article</title><link>https://www.anthropic.com/news/broken</link>
<pubDate>Wed, 14 Oct 2026 09:00:00 +0000</pubDate><description>Feed summary three</description></item>
</channel></rss>`

func TestRun_UpgradeItemFetch(t *testing.T) {
	spec := mustSpec(t, AnthropicNews)
	longBody := "This article body is comfortably longer than the forty character minimum."
	fetcher := &MockFetcher{
		bodies: map[string]string{
			spec.ListingURL:                         anthropicFeed,
			"https://www.anthropic.com/news/long":   `<html><body><nav>Nav</nav><article><p>` + longBody + `</p></article></body></html>`,
			"https://www.anthropic.com/news/short":  `<html><body><article><p>Too short</p></article></body></html>`,
		},
		failures: map[string]error{"https://www.anthropic.com/news/broken": errors.New("connection reset")},
	}

	s, err := New(spec, Options{Fetcher: fetcher, Today: testToday, ItemConcurrency: 1})
	require.NoError(t, err)

	records, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, longBody, records[0].Content, "使える本文があれば置き換える")
	assert.Equal(t, "Feed summary two", records[1].Content, "短すぎる抽出結果ではフィードの本文を残す")
	assert.Equal(t, "Feed summary three", records[2].Content, "取得失敗でもフィードの本文を残す")
}

func TestRun_AnchorsListing(t *testing.T) {
	spec := mustSpec(t, XAINews)
	listingPage := `<html><body><header><a href="/news">News</a></header>
<div><p>October 16, 2026</p><a href="/news/grok-5">Grok 5</a></div>
<div><p>October 10, 2026</p><a href="/news/api-update">API update</a><a href="/news/api-update">READ</a></div>
</body></html>`
	fetcher := &MockFetcher{bodies: map[string]string{
		spec.ListingURL: listingPage,
		"https://x.ai/news/grok-5": `<html><body><main><h1>Grok 5</h1><p>Grok 5 is available today.</p>` +
			`<p>Try Grok On</p><p>iOS</p></main></body></html>`,
		"https://x.ai/news/api-update": `<html><body><article><p>API changes.</p></article><p>Products</p></body></html>`,
	}}

	s, err := New(spec, Options{Fetcher: fetcher, Today: testToday})
	require.NoError(t, err)

	records, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Record{
		{
			Title:   "Grok 5",
			URL:     "https://x.ai/news/grok-5",
			Date:    "October 16, 2026",
			Content: "Grok 5\n Grok 5 is available today.",
		},
		{
			Title:   "API update",
			URL:     "https://x.ai/news/api-update",
			Date:    "October 10, 2026",
			Content: "API changes.",
		},
	}, records)
}

func TestRun_OpenAlexQuery(t *testing.T) {
	spec := mustSpec(t, OpenAlex)
	window := recency.NewWindow(testToday, spec.WindowDays)
	requestURL, err := OpenAlexQuery(spec.ListingURL, window)
	require.NoError(t, err)

	works := `{"results":[{"id":"https://openalex.org/W1","display_name":"A study",` +
		`"publication_date":"2026-10-18","abstract_inverted_index":{"Deep":[0],"learning":[1]}}]}`
	fetcher := &MockFetcher{bodies: map[string]string{requestURL: works}}

	s, err := New(spec, Options{Fetcher: fetcher, Today: testToday})
	require.NoError(t, err)

	records, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Deep learning", records[0].Content)
	assert.Equal(t, "https://openalex.org/W1", records[0].URL)
}

func TestOpenAlexQuery(t *testing.T) {
	t.Run("with_window", func(t *testing.T) {
		got, err := OpenAlexQuery("https://api.openalex.org/works", recency.NewWindow(testToday, 7))
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "api.openalex.org", u.Host)
		assert.Equal(t, "/works", u.Path)
		assert.Equal(t, "artificial intelligence", q.Get("search"))
		assert.Equal(t, "from_publication_date:2026-10-13,to_publication_date:2026-10-19", q.Get("filter"))
		assert.Equal(t, "publication_date:desc", q.Get("sort"))
		assert.Equal(t, "200", q.Get("per-page"))
	})

	t.Run("without_window", func(t *testing.T) {
		got, err := OpenAlexQuery("https://api.openalex.org/works", recency.NewWindow(testToday, 0))
		require.NoError(t, err)
		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Empty(t, u.Query().Get("filter"))
	})
}

func TestBuiltins(t *testing.T) {
	specs := Builtins()
	require.Len(t, specs, 6)

	names := map[string]bool{}
	baseNames := map[string]bool{}
	for _, spec := range specs {
		assert.False(t, names[spec.Name], "識別名が重複しています: %s", spec.Name)
		assert.False(t, baseNames[spec.BaseName], "ベース名が重複しています: %s", spec.BaseName)
		names[spec.Name] = true
		baseNames[spec.BaseName] = true

		assert.NotNil(t, spec.NewListing)
		if spec.Mode != FetchNone {
			assert.NotNil(t, spec.Content, spec.Name)
		}
	}

	assert.Equal(t, []string{AndonLabs, AnthropicNews, DeepMindBlog, TechnologyReview, OpenAlex, XAINews}, Names())

	_, ok := Lookup("unknown")
	assert.False(t, ok)
}

func TestNoItemsFoundError(t *testing.T) {
	err := &NoItemsFoundError{Source: "xai_news", Reason: "直近30日間の記事が見つかりませんでした"}
	assert.Equal(t, "xai_news: 直近30日間の記事が見つかりませんでした", err.Error())
	assert.ErrorIs(t, err, ErrNoItemsFound)
	assert.NotErrorIs(t, errors.New("other"), ErrNoItemsFound)
}

func TestFetchMode_String(t *testing.T) {
	assert.Equal(t, "none", FetchNone.String())
	assert.Equal(t, "required", FetchRequired.String())
	assert.Equal(t, "upgrade", FetchUpgrade.String())
	assert.Equal(t, "FetchMode(9)", FetchMode(9).String())
}
