package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "harvest"

// Recorder は、1回の実行で集計するメトリクスを保持します。
// 実行ごとに専用のレジストリを持ち、グローバルなレジストリには登録しません。
// nil の Recorder に対する呼び出しは何もしません。
type Recorder struct {
	registry     *prometheus.Registry
	records      *prometheus.CounterVec
	failures     *prometheus.CounterVec
	duration     *prometheus.GaugeVec
	itemFailures *prometheus.CounterVec
}

// New は、メトリクスを登録済みの Recorder を生成します。
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "取得元ごとに出力したレコード数",
		}, []string{"source"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "取得元ごとの失敗回数",
		}, []string{"source"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "取得元ごとの処理時間 (秒)",
		}, []string{"source"}),
		itemFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_fetch_failures_total",
			Help:      "取得元ごとの記事本文の取得失敗数",
		}, []string{"source"}),
	}
	r.registry.MustRegister(r.records, r.failures, r.duration, r.itemFailures)
	return r
}

// ObserveSource は、1つの取得元の実行結果を記録します。
func (r *Recorder) ObserveSource(name string, records int, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(name).Set(elapsed.Seconds())
	if err != nil {
		r.failures.WithLabelValues(name).Inc()
		return
	}
	r.records.WithLabelValues(name).Add(float64(records))
}

// ItemFetchFailed は、記事本文の取得失敗を1件記録します。
func (r *Recorder) ItemFetchFailed(name string) {
	if r == nil {
		return
	}
	r.itemFailures.WithLabelValues(name).Inc()
}

// WriteToTextfile は、メトリクスを Prometheus のテキスト形式でファイルに書き出します。
func (r *Recorder) WriteToTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("メトリクスの書き出しに失敗しました (%s): %w", path, err)
	}
	return nil
}
