package source

import (
	"context"
	"fmt"
	"time"

	"github.com/martinsmeder/AI-agent-test/internal/logger"
	"github.com/martinsmeder/AI-agent-test/pkg/client"
	"github.com/martinsmeder/AI-agent-test/pkg/extract"
	"github.com/martinsmeder/AI-agent-test/pkg/listing"
	"github.com/martinsmeder/AI-agent-test/pkg/recency"
	"github.com/martinsmeder/AI-agent-test/pkg/scraper"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

// ----------------------------------------------------------------------
// 依存性の定義
// ----------------------------------------------------------------------

// Adapter は、1つの取得元から Record の列を作る処理のインターフェースです。
// Aggregator はこの抽象だけに依存します。
type Adapter interface {
	// Name は取得元の識別名です。
	Name() string
	// BaseName は出力ファイルのベース名です。
	BaseName() string
	// Fields は出力列の順序です。
	Fields() []string
	// Run は一覧の取得から本文の抽出までを行います。
	Run(ctx context.Context) ([]types.Record, error)
}

// ItemObserver は、記事本文の取得失敗を通知されるオブザーバーです。
type ItemObserver interface {
	ItemFetchFailed(source string)
}

// FetchMode は、候補ごとに記事ページを取得するかどうかの方針です。
type FetchMode int

const (
	// FetchNone は記事ページを取得せず、一覧の暫定コンテンツをそのまま使います。
	FetchNone FetchMode = iota
	// FetchRequired は記事ページを必ず取得し、抽出結果を本文とします。
	FetchRequired
	// FetchUpgrade は記事ページの取得を試み、使える本文が得られた場合だけ暫定コンテンツを置き換えます。
	FetchUpgrade
)

func (m FetchMode) String() string {
	switch m {
	case FetchNone:
		return "none"
	case FetchRequired:
		return "required"
	case FetchUpgrade:
		return "upgrade"
	}
	return fmt.Sprintf("FetchMode(%d)", int(m))
}

// ----------------------------------------------------------------------
// 取得元の定義
// ----------------------------------------------------------------------

// Spec は、1つの取得元の固定的な性質です。
type Spec struct {
	Name       string
	BaseName   string
	ListingURL string
	// WindowDays は期間の日数です。0 の場合は絞り込みを行いません。
	WindowDays int
	// Strategy は一覧の解析方法の説明です (表示用)。
	Strategy string
	Mode     FetchMode
	// NewListing は、一覧URLをベースURLとする Extractor を生成します。
	NewListing func(listingURL string) listing.Extractor
	// Query が nil でない場合、期間を反映したリクエストURLを組み立てます。
	Query func(listingURL string, window recency.Window) (string, error)
	// Content は記事ページの本文抽出器です。Mode が FetchNone の場合は使いません。
	Content extract.ContentExtractor
}

// Options は、実行時に外から与える依存と設定です。
type Options struct {
	Fetcher extract.Fetcher
	// Today は期間の基準日です。実行ごとに一度だけ決めて全取得元で共有します。
	Today time.Time
	// ItemConcurrency は記事ページ取得の同時実行数です。0 以下なら scraper.DefaultMaxConcurrency。
	ItemConcurrency int
	// StrictItemFetch が true の場合、記事ページの取得失敗で取得元全体を失敗させます。
	StrictItemFetch bool
	Observer        ItemObserver
}

// Source は Spec と Options を組み合わせた Adapter の実装です。
type Source struct {
	spec   Spec
	opts   Options
	window recency.Window
}

// New は Source を生成します。
func New(spec Spec, opts Options) (*Source, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("source.New: Name cannot be empty")
	}
	if spec.NewListing == nil {
		return nil, fmt.Errorf("source.New(%s): NewListing cannot be nil", spec.Name)
	}
	if spec.Mode != FetchNone && spec.Content == nil {
		return nil, fmt.Errorf("source.New(%s): Content cannot be nil when Mode is %s", spec.Name, spec.Mode)
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("source.New(%s): Fetcher cannot be nil", spec.Name)
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}
	return &Source{
		spec:   spec,
		opts:   opts,
		window: recency.NewWindow(opts.Today, spec.WindowDays),
	}, nil
}

// Name は Adapter インターフェースを満たします。
func (s *Source) Name() string { return s.spec.Name }

// BaseName は Adapter インターフェースを満たします。
func (s *Source) BaseName() string { return s.spec.BaseName }

// Fields は Adapter インターフェースを満たします。
func (s *Source) Fields() []string {
	return append([]string(nil), types.DefaultFields...)
}

// Window は取得元の期間を返します。
func (s *Source) Window() recency.Window { return s.window }

// ----------------------------------------------------------------------
// 実行
// ----------------------------------------------------------------------

// Run は Adapter インターフェースを満たします。
// 一覧の取得・解析の失敗と、候補が0件の場合 (NoItemsFoundError) だけがエラーになります。
func (s *Source) Run(ctx context.Context) ([]types.Record, error) {
	log := logger.ForSource(s.spec.Name)

	// 1. 一覧の取得
	requestURL := s.spec.ListingURL
	if s.spec.Query != nil {
		u, err := s.spec.Query(s.spec.ListingURL, s.window)
		if err != nil {
			return nil, fmt.Errorf("%s: リクエストURLの組み立てに失敗しました: %w", s.spec.Name, err)
		}
		requestURL = u
	}
	log.WithField("url", requestURL).Debug("一覧を取得します")

	body, err := s.opts.Fetcher.FetchBytes(ctx, requestURL)
	if err != nil {
		return nil, fmt.Errorf("%s: 一覧の取得に失敗しました: %w", s.spec.Name, err)
	}

	// 2. 候補の抽出と期間での絞り込み
	candidates, err := s.spec.NewListing(s.spec.ListingURL).Extract(body, s.window)
	if err != nil {
		return nil, fmt.Errorf("%s: 一覧の解析に失敗しました: %w", s.spec.Name, err)
	}
	if len(candidates) == 0 {
		return nil, &NoItemsFoundError{Source: s.spec.Name, Reason: s.noItemsReason()}
	}

	// 3. 本文の取得
	if s.spec.Mode == FetchNone {
		records := make([]types.Record, len(candidates))
		for i, c := range candidates {
			records[i] = c.ToRecord()
		}
		log.Infof("直近の記事を %d 件取得しました", len(records))
		return records, nil
	}

	records, err := s.attachContent(ctx, candidates)
	if err != nil {
		return nil, err
	}
	log.Infof("直近の記事を %d 件取得しました", len(records))
	return records, nil
}

// attachContent は、候補ごとに記事ページを取得して本文を付与します。
func (s *Source) attachContent(ctx context.Context, candidates []types.Candidate) ([]types.Record, error) {
	log := logger.ForSource(s.spec.Name)

	ps, err := scraper.NewParallelScraper(s.opts.Fetcher, s.spec.Content, s.opts.ItemConcurrency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.spec.Name, err)
	}

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.URL
	}
	results := ps.ScrapeInParallel(ctx, urls)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: 記事の取得が中断されました: %w", s.spec.Name, err)
	}

	records := make([]types.Record, 0, len(candidates))
	for i, res := range results {
		c := candidates[i]
		entry := log.WithField("url", c.URL)

		if res.Error != nil {
			if s.opts.Observer != nil {
				s.opts.Observer.ItemFetchFailed(s.spec.Name)
			}
			if s.opts.StrictItemFetch {
				return nil, fmt.Errorf("%s: 記事の取得に失敗しました (%s): %w", s.spec.Name, c.URL, res.Error)
			}
			entry.WithError(res.Error).
				WithField("permanent", client.IsNonRetryableError(res.Error)).
				Warnf("[%d/%d] 記事の取得に失敗したため暫定の本文を使います", i+1, len(results))
		} else {
			entry.Infof("[%d/%d] 本文を取得しました", i+1, len(results))
		}

		switch s.spec.Mode {
		case FetchRequired:
			c.Content = res.Content
		case FetchUpgrade:
			if res.Content != "" {
				c.Content = res.Content
			}
		}
		records = append(records, c.ToRecord())
	}
	return records, nil
}

func (s *Source) noItemsReason() string {
	if s.window.Enabled() {
		return fmt.Sprintf("直近%d日間の記事が見つかりませんでした", s.window.Days())
	}
	return "記事が見つかりませんでした"
}
