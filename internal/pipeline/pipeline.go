package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/martinsmeder/AI-agent-test/internal/config"
	"github.com/martinsmeder/AI-agent-test/internal/logger"
	"github.com/martinsmeder/AI-agent-test/internal/metrics"
	"github.com/martinsmeder/AI-agent-test/pkg/aggregate"
	"github.com/martinsmeder/AI-agent-test/pkg/extract"
	"github.com/martinsmeder/AI-agent-test/pkg/output"
	"github.com/martinsmeder/AI-agent-test/pkg/source"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

// Settings は、パイプラインの実行に必要な依存と設定です。
type Settings struct {
	Config  *config.Config
	Fetcher extract.Fetcher
	// Today は期間の基準日です。ゼロ値の場合は実行ごとに一度だけ現在時刻を読みます。
	Today time.Time
	// PerSource が true の場合、統合出力に加えて取得元ごとの出力も書き出します。
	PerSource bool
	// MetricsFile が空でない場合、実行ごとにメトリクスをテキスト形式で書き出します。
	MetricsFile string
}

// Report は1回の実行結果です。
type Report struct {
	Today   time.Time
	Result  *aggregate.Result
	Outputs map[string]output.Paths // ベース名 → 書き出したファイル
}

// Runner は、取得元の実行から出力の書き出しまでを行う処理パイプラインです。
type Runner struct {
	settings Settings
	writer   *output.Writer
}

// New は Runner を生成します。
func New(settings Settings) (*Runner, error) {
	if settings.Config == nil {
		return nil, fmt.Errorf("pipeline.New: Config cannot be nil")
	}
	if settings.Fetcher == nil {
		return nil, fmt.Errorf("pipeline.New: Fetcher cannot be nil")
	}
	return &Runner{
		settings: settings,
		writer:   output.NewWriter(settings.Config.OutputDir),
	}, nil
}

// RunAll は有効なすべての取得元を実行し、統合出力を書き出します。
// 成功した取得元が1つもない場合は aggregate.ErrNoSourceSucceeded を含むエラーを返し、統合出力は書き出しません。
func (r *Runner) RunAll(ctx context.Context) (*Report, error) {
	return r.run(ctx, r.settings.Config.EnabledSpecs(), true)
}

// RunSource は1つの取得元だけを実行し、その取得元のベース名で出力を書き出します。
func (r *Runner) RunSource(ctx context.Context, name string) (*Report, error) {
	spec, err := r.settings.Config.Spec(name)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, []source.Spec{spec}, false)
}

func (r *Runner) run(ctx context.Context, specs []source.Spec, combined bool) (*Report, error) {
	cfg := r.settings.Config
	today := r.settings.Today
	if today.IsZero() {
		today = time.Now()
	}

	// 1. 取得元の組み立て
	recorder := metrics.New()
	adapters := make([]source.Adapter, 0, len(specs))
	for _, spec := range specs {
		s, err := source.New(spec, source.Options{
			Fetcher:         r.settings.Fetcher,
			Today:           today,
			ItemConcurrency: cfg.ItemConcurrency,
			StrictItemFetch: cfg.StrictItemFetch,
			Observer:        recorder,
		})
		if err != nil {
			return nil, fmt.Errorf("取得元の初期化エラー: %w", err)
		}
		adapters = append(adapters, s)
	}

	logger.Log.WithFields(logger.Fields{
		"sources": len(adapters),
		"today":   today.Format("2006-01-02"),
	}).Info("取得を開始します")

	// 2. 実行と統合
	result := aggregate.New(adapters,
		aggregate.WithConcurrency(cfg.SourceConcurrency),
		aggregate.WithObserver(recorder),
	).Run(ctx)
	defer r.writeMetrics(recorder)

	report := &Report{Today: today, Result: result, Outputs: map[string]output.Paths{}}
	if err := result.Err(); err != nil {
		return report, err
	}

	// 3. 出力
	if combined {
		paths, err := r.writer.Write(result.Records, types.DefaultFields, output.CombinedBaseName)
		if err != nil {
			return report, err
		}
		report.Outputs[output.CombinedBaseName] = paths
		logger.Log.WithField("records", len(result.Records)).Infof("統合出力を書き出しました: %s", paths.JSON)
	}
	if !combined || r.settings.PerSource {
		for _, sr := range result.Sources {
			if sr.Err != nil {
				continue
			}
			paths, err := r.writer.Write(sr.Records, sr.Adapter.Fields(), sr.Adapter.BaseName())
			if err != nil {
				return report, err
			}
			report.Outputs[sr.Adapter.BaseName()] = paths
			logger.ForSource(sr.Adapter.Name()).Infof("出力を書き出しました: %s", paths.JSON)
		}
	}
	return report, nil
}

func (r *Runner) writeMetrics(recorder *metrics.Recorder) {
	if r.settings.MetricsFile == "" {
		return
	}
	if err := recorder.WriteToTextfile(r.settings.MetricsFile); err != nil {
		logger.Log.WithError(err).Warn("メトリクスを書き出せませんでした")
	}
}
