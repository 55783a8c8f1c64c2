// Package pipeline は設定から記事採点の依存関係を組み立てます。
package pipeline

import (
	"fmt"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/shouni/go-jaundice-rate/pkg/adapters"
	"github.com/shouni/go-jaundice-rate/pkg/config"
	"github.com/shouni/go-jaundice-rate/pkg/httpclient"
	"github.com/shouni/go-jaundice-rate/pkg/lexicon"
	"github.com/shouni/go-jaundice-rate/pkg/logger"
	"github.com/shouni/go-jaundice-rate/pkg/metrics"
	"github.com/shouni/go-jaundice-rate/pkg/morph"
	"github.com/shouni/go-jaundice-rate/pkg/processor"
	"github.com/shouni/go-jaundice-rate/pkg/scraper"
)

// Service は起動時に一度だけ組み立てる共有の依存関係です。
type Service struct {
	Config     *config.Config
	Logger     logger.Logger
	Client     *httpclient.Client
	Sources    *adapters.Registry
	Normalizer morph.Normalizer
	Lexicon    *lexicon.Lexicon
	Processor  *processor.Processor
	Scorer     *scraper.BatchScorer
}

// New は Service を生成します。reg が nil の場合はメトリクスを記録しません。
func New(cfg *config.Config, log logger.Logger, reg prometheus.Registerer) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline.New: config cannot be nil")
	}
	if log == nil {
		log = logger.NewNop()
	}

	// 1. メトリクス
	var collector *metrics.Collector
	if reg != nil {
		var err error
		collector, err = metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("メトリクスの登録に失敗しました: %w", err)
		}
	}

	// 2. 配信元 (許可リストに含まれるホストだけを残す)
	sources, err := adapters.Default().Restrict(cfg.Sources.AllowedHosts)
	if err != nil {
		return nil, fmt.Errorf("配信元の設定が不正です: %w", err)
	}

	// 3. 正規化と辞書 (辞書の単語も同じ規則で基本形に揃える)
	normalizer := morph.NewSnowballNormalizer()
	lex, err := lexicon.LoadFiles(normalizer.Lemma, cfg.Lexicon.Paths...)
	if err != nil {
		return nil, fmt.Errorf("辞書の読み込みに失敗しました: %w", err)
	}
	log.Info("辞書を読み込みました",
		logger.Strings("paths", cfg.Lexicon.Paths),
		logger.Int("words", lex.Len()),
	)

	// 4. HTTP クライアント (全記事で共有し、接続を再利用する)
	client := httpclient.New(cfg.Scoring.FetchTimeout,
		httpclient.WithMaxRetries(cfg.HTTP.MaxRetries),
		httpclient.WithUserAgent(cfg.HTTP.UserAgent),
	)

	// 5. 記事処理
	proc, err := processor.New(processor.Config{
		Fetcher:         client,
		Registry:        sources,
		Normalizer:      normalizer,
		Lexicon:         lex,
		FetchTimeout:    cfg.Scoring.FetchTimeout,
		AnalysisTimeout: cfg.Scoring.AnalysisTimeout,
		Logger:          log,
		Metrics:         collector,
	})
	if err != nil {
		return nil, fmt.Errorf("Processorの初期化エラー: %w", err)
	}

	// 6. バッチ処理
	opts := []scraper.Option{
		scraper.WithMaxURLs(cfg.Scoring.MaxURLs),
		scraper.WithMaxConcurrency(cfg.Concurrency()),
		scraper.WithLogger(log),
		scraper.WithMetrics(collector),
	}
	if rps := cfg.Scoring.RequestsPerSecond; rps > 0 {
		opts = append(opts, scraper.WithRateLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}
	scorer, err := scraper.NewBatchScorer(proc, opts...)
	if err != nil {
		return nil, fmt.Errorf("BatchScorerの初期化エラー: %w", err)
	}

	return &Service{
		Config:     cfg,
		Logger:     log,
		Client:     client,
		Sources:    sources,
		Normalizer: normalizer,
		Lexicon:    lex,
		Processor:  proc,
		Scorer:     scorer,
	}, nil
}

// Supports はURLのホストが採点対象の配信元かどうかを返します。
func (s *Service) Supports(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := s.Sources.Lookup(parsed.Hostname())
	return ok
}
