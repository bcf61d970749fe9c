package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/martinsmeder/AI-agent-test/internal/logger"
	"github.com/martinsmeder/AI-agent-test/pkg/source"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

const (
	// DefaultSourceConcurrency は、取得元を同時に実行する数のデフォルトです。
	DefaultSourceConcurrency = 3
)

// ErrNoSourceSucceeded は、成功した取得元が1つもなかったことを示します。
var ErrNoSourceSucceeded = errors.New("データを取得できた取得元がありません")

// SourceObserver は、取得元ごとの実行結果を通知されるオブザーバーです。
type SourceObserver interface {
	ObserveSource(name string, records int, elapsed time.Duration, err error)
}

// Failure は、失敗した取得元とその原因です。
type Failure struct {
	Source string
	Err    error
}

// SourceResult は、1つの取得元の実行結果です。Err が nil の場合のみ Records が有効です。
type SourceResult struct {
	Adapter source.Adapter
	Records []types.Record
	Err     error
	Elapsed time.Duration
}

// Result は、すべての取得元を実行した結果です。
type Result struct {
	// Records は成功した取得元のレコードを、取得元の宣言順に連結したものです。取得元をまたいだ重複排除は行いません。
	Records []types.Record
	// Succeeded は成功した取得元の名前です (宣言順)。
	Succeeded []string
	// Failures は失敗した取得元とその原因です (宣言順)。
	Failures []Failure
	// Sources は取得元ごとの結果です (宣言順)。
	Sources []SourceResult
}

// Err は、成功した取得元が1つもない場合に ErrNoSourceSucceeded を返します。
func (r *Result) Err() error {
	if len(r.Succeeded) > 0 {
		return nil
	}
	if len(r.Failures) == 0 {
		return ErrNoSourceSucceeded
	}
	errs := make([]error, 0, len(r.Failures)+1)
	errs = append(errs, ErrNoSourceSucceeded)
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Aggregator は、複数の取得元を実行して結果を統合します。
type Aggregator struct {
	adapters    []source.Adapter
	concurrency int
	observer    SourceObserver
}

// Option は Aggregator の設定を行うための関数型です。
type Option func(*Aggregator)

// WithConcurrency は取得元の同時実行数を設定します。1 の場合は宣言順に1つずつ実行します。
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithObserver は実行結果のオブザーバーを設定します。
func WithObserver(o SourceObserver) Option {
	return func(a *Aggregator) {
		a.observer = o
	}
}

// New は Aggregator を生成します。
func New(adapters []source.Adapter, options ...Option) *Aggregator {
	a := &Aggregator{
		adapters:    adapters,
		concurrency: DefaultSourceConcurrency,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Run は、すべての取得元を実行します。
// ある取得元の失敗は記録して他の取得元の実行を続け、失敗した取得元のレコードは一切統合しません。
func (a *Aggregator) Run(ctx context.Context) *Result {
	results := make([]SourceResult, len(a.adapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, adapter := range a.adapters {
		g.Go(func() error {
			results[i] = a.runOne(gctx, adapter)
			// 取得元の失敗で他の取得元を止めないため、常に nil を返す
			return nil
		})
	}
	_ = g.Wait()

	return merge(results)
}

// runOne は1つの取得元を実行し、レコードをローカルにバッファします。
func (a *Aggregator) runOne(ctx context.Context, adapter source.Adapter) SourceResult {
	log := logger.ForSource(adapter.Name())
	start := time.Now()

	records, err := safeRun(ctx, adapter)
	elapsed := time.Since(start)

	if a.observer != nil {
		a.observer.ObserveSource(adapter.Name(), len(records), elapsed, err)
	}
	if err != nil {
		log.WithError(err).Error("取得元の処理に失敗しました")
		return SourceResult{Adapter: adapter, Err: err, Elapsed: elapsed}
	}
	log.WithField("records", len(records)).Debug("取得元の処理が完了しました")
	return SourceResult{Adapter: adapter, Records: records, Elapsed: elapsed}
}

// safeRun は、取得元の panic をエラーとして扱います。
func safeRun(ctx context.Context, adapter source.Adapter) (records []types.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("%s: 予期せぬエラーが発生しました: %v", adapter.Name(), r)
		}
	}()
	return adapter.Run(ctx)
}

// merge は、取得元ごとの結果を宣言順に統合します。
func merge(results []SourceResult) *Result {
	out := &Result{
		Records: []types.Record{},
		Sources: results,
	}
	for _, res := range results {
		name := res.Adapter.Name()
		if res.Err != nil {
			out.Failures = append(out.Failures, Failure{Source: name, Err: res.Err})
			continue
		}
		out.Succeeded = append(out.Succeeded, name)
		out.Records = append(out.Records, res.Records...)
	}
	return out
}
