package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/martinsmeder/AI-agent-test/pkg/extract"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

const (
	// DefaultMaxConcurrency は、記事本文の並列取得のデフォルトの最大同時実行数を定義します。
	DefaultMaxConcurrency = 4
)

// Scraper は記事本文の一括取得機能を提供するインターフェースです。
type Scraper interface {
	ScrapeInParallel(ctx context.Context, urls []string) []types.URLResult
}

// ParallelScraper は Scraper インターフェースを実装する並列処理構造体です。
// 結果は入力URLと同じ順序で返します。
type ParallelScraper struct {
	fetcher        extract.Fetcher
	extractor      extract.ContentExtractor
	maxConcurrency int // 最大並列数を保持するフィールド
}

// NewParallelScraper は ParallelScraper を初期化します。
// 依存性として Fetcher と ContentExtractor、最大同時実行数を受け取ります。
// maxConcurrency が 1 の場合は1件ずつ順に取得します。
func NewParallelScraper(fetcher extract.Fetcher, extractor extract.ContentExtractor, maxConcurrency int) (*ParallelScraper, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("scraper.NewParallelScraper: Fetcher cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("scraper.NewParallelScraper: ContentExtractor cannot be nil")
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &ParallelScraper{
		fetcher:        fetcher,
		extractor:      extractor,
		maxConcurrency: maxConcurrency,
	}, nil
}

// ScrapeInParallel は Scraper インターフェースのメソッドを実装します。
// 取得に失敗したURLは Error を持つ結果になり、他のURLの処理は続行されます。
// 本文が空であることはエラーとして扱いません。
func (s *ParallelScraper) ScrapeInParallel(ctx context.Context, urls []string) []types.URLResult {
	results := make([]types.URLResult, len(urls))
	var wg sync.WaitGroup

	// バッファ付きチャネルをセマフォとして使用し、同時実行数を制限する
	semaphore := make(chan struct{}, s.maxConcurrency)

	for i, url := range urls {
		// リソース（スロット）の確保。maxConcurrency件実行中の場合はここでブロックして待機。
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			results[i] = types.URLResult{URL: url, Error: ctx.Err()}
			continue
		}

		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			// 処理完了後にリソース（スロット）を解放。
			defer func() { <-semaphore }()

			results[idx] = s.scrapeOne(ctx, u)
		}(i, url)
	}

	wg.Wait()
	return results
}

// scrapeOne は1件のURLを取得して本文を抽出します。
func (s *ParallelScraper) scrapeOne(ctx context.Context, url string) types.URLResult {
	if err := ctx.Err(); err != nil {
		return types.URLResult{URL: url, Error: err}
	}

	body, err := s.fetcher.FetchBytes(ctx, url)
	if err != nil {
		return types.URLResult{
			URL:   url,
			Error: fmt.Errorf("コンテンツの取得に失敗しました: %w", err),
		}
	}
	return types.URLResult{
		URL:     url,
		Content: s.extractor.Extract(body),
	}
}
