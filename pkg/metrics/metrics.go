// Package metrics は記事解析のメトリクスを Prometheus 形式で公開します。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jaundice"

// Collector は処理結果と所要時間を記録します。nil の Collector は何もしません。
type Collector struct {
	articles *prometheus.CounterVec
	analysis prometheus.Histogram
	batches  prometheus.Histogram
	urls     prometheus.Histogram
}

// New は Collector を生成し、reg に登録します。
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Processed articles by terminal status.",
		}, []string{"status"}),
		analysis: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall-clock time of text normalization per article.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock time of a whole batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		urls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of URLs per batch.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}

	for _, col := range []prometheus.Collector{c.articles, c.analysis, c.batches, c.urls} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveArticle は記事1件の最終ステータスを記録します。
func (c *Collector) ObserveArticle(status string) {
	if c == nil {
		return
	}
	c.articles.WithLabelValues(status).Inc()
}

// ObserveAnalysis は正規化にかかった時間を記録します。
func (c *Collector) ObserveAnalysis(d time.Duration) {
	if c == nil {
		return
	}
	c.analysis.Observe(d.Seconds())
}

// ObserveBatch はバッチ全体の件数と所要時間を記録します。
func (c *Collector) ObserveBatch(size int, d time.Duration) {
	if c == nil {
		return
	}
	c.urls.Observe(float64(size))
	c.batches.Observe(d.Seconds())
}
