// Package processor は記事1件を取得から採点まで処理し、結果を ArticleResult に変換します。
package processor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/shouni/go-jaundice-rate/pkg/adapters"
	"github.com/shouni/go-jaundice-rate/pkg/httpclient"
	"github.com/shouni/go-jaundice-rate/pkg/jaundice"
	"github.com/shouni/go-jaundice-rate/pkg/logger"
	"github.com/shouni/go-jaundice-rate/pkg/metrics"
	"github.com/shouni/go-jaundice-rate/pkg/morph"
	"github.com/shouni/go-jaundice-rate/pkg/types"
)

const (
	DefaultFetchTimeout    = 5 * time.Second
	DefaultAnalysisTimeout = 5 * time.Second
)

// 利用者に返す固定のタイトル
const (
	titleConnectionError = "Connection error"
	titleFetchTimeout    = "TimeOut error"
)

// ----------------------------------------------------------------------
// 依存性の定義
// ----------------------------------------------------------------------

// Fetcher は、ページの生データを取得する機能のインターフェースです。
// *httpclient.Client が満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// Config は Processor の依存と設定です。
type Config struct {
	Fetcher         Fetcher
	Registry        *adapters.Registry
	Normalizer      morph.Normalizer
	Lexicon         jaundice.Lexicon
	FetchTimeout    time.Duration
	AnalysisTimeout time.Duration
	Logger          logger.Logger
	Metrics         *metrics.Collector
}

// Processor は記事の処理パイプラインです。状態を持たないため並列に呼び出せます。
type Processor struct {
	fetcher         Fetcher
	registry        *adapters.Registry
	normalizer      morph.Normalizer
	lexicon         jaundice.Lexicon
	fetchTimeout    time.Duration
	analysisTimeout time.Duration
	logger          logger.Logger
	metrics         *metrics.Collector
}

// New は Processor を生成します。
func New(cfg Config) (*Processor, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("processor.New: Fetcher cannot be nil")
	}
	if cfg.Registry == nil {
		return nil, errors.New("processor.New: Registry cannot be nil")
	}
	if cfg.Normalizer == nil {
		return nil, errors.New("processor.New: Normalizer cannot be nil")
	}
	if cfg.Lexicon == nil {
		return nil, errors.New("processor.New: Lexicon cannot be nil")
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = DefaultAnalysisTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	return &Processor{
		fetcher:         cfg.Fetcher,
		registry:        cfg.Registry,
		normalizer:      cfg.Normalizer,
		lexicon:         cfg.Lexicon,
		fetchTimeout:    cfg.FetchTimeout,
		analysisTimeout: cfg.AnalysisTimeout,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
	}, nil
}

// ----------------------------------------------------------------------
// 内部の処理結果
// ----------------------------------------------------------------------

// outcome は成功した記事の解析結果です。
type outcome struct {
	title      string
	score      float64
	wordsCount int
}

// failure は記事処理の失敗を表すエラーです。Status と利用者向けのタイトルを持ちます。
type failure struct {
	status types.Status
	title  string
	err    error
}

func (f *failure) Error() string {
	if f.err != nil {
		return fmt.Sprintf("%s (%s): %v", f.status, f.title, f.err)
	}
	return fmt.Sprintf("%s (%s)", f.status, f.title)
}

func (f *failure) Unwrap() error { return f.err }

func fail(status types.Status, title string, err error) *failure {
	return &failure{status: status, title: title, err: err}
}

// ----------------------------------------------------------------------
// メイン処理
// ----------------------------------------------------------------------

// Process は記事を1件処理します。どのような失敗も ArticleResult として返し、エラーは返しません。
func (p *Processor) Process(ctx context.Context, rawURL string) types.ArticleResult {
	log := p.logger.With(logger.String("url", rawURL))

	out, err := p.process(ctx, rawURL, log)
	if err != nil {
		var f *failure
		if !errors.As(err, &f) {
			f = fail(types.StatusParsingError, err.Error(), err)
		}
		log.Warn("記事の処理に失敗しました",
			logger.String("status", string(f.status)),
			logger.Error(err),
		)
		p.metrics.ObserveArticle(string(f.status))
		return types.Failure(f.status, f.title)
	}

	p.metrics.ObserveArticle(string(types.StatusOK))
	return types.OK(out.title, out.score, out.wordsCount)
}

func (p *Processor) process(ctx context.Context, rawURL string, log logger.Logger) (outcome, error) {
	// 1. 配信元の確認 (ネットワークには触れない)
	adapter, err := p.checkSource(rawURL)
	if err != nil {
		return outcome{}, err
	}

	// 2. 取得
	markup, err := p.fetch(ctx, rawURL)
	if err != nil {
		return outcome{}, err
	}

	// 3. 本文とタイトルの抽出
	body, title, err := adapter.Extract(string(markup))
	if err != nil {
		return outcome{}, fail(types.StatusParsingError, err.Error(), err)
	}

	// 4. 正規化 (取得とは独立した期限で実行)
	lemmas, err := p.normalize(ctx, body, log)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return outcome{}, fail(types.StatusTimeout, title, err)
		}
		return outcome{}, fail(types.StatusParsingError, title, err)
	}

	// 5. 採点
	score, err := jaundice.Rate(lemmas, p.lexicon)
	if err != nil {
		return outcome{}, fail(types.StatusParsingError, title, err)
	}

	return outcome{title: title, score: score, wordsCount: len(lemmas)}, nil
}

// checkSource はURLのホストが許可リストに含まれているかを確認し、対応するアダプターを返します。
func (p *Processor) checkSource(rawURL string) (adapters.SiteAdapter, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fail(types.StatusFetchError, invalidURLTitle(rawURL), err)
	}

	adapter, ok := p.registry.Lookup(parsed.Hostname())
	if !ok {
		return nil, fail(types.StatusParsingError, "Статья на "+parsed.Host, nil)
	}
	return adapter, nil
}

// fetch は fetchTimeout の範囲でページを取得し、エラーを分類します。
func (p *Processor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	markup, err := p.fetcher.FetchBytes(fetchCtx, rawURL)
	if err == nil {
		return markup, nil
	}

	switch {
	case httpclient.IsInvalidURLError(err):
		return nil, fail(types.StatusFetchError, invalidURLTitle(rawURL), err)
	case httpclient.IsTimeout(err) || errors.Is(err, context.Canceled):
		return nil, fail(types.StatusTimeout, titleFetchTimeout, err)
	default:
		return nil, fail(types.StatusFetchError, titleConnectionError, err)
	}
}

type normalizeResult struct {
	lemmas []string
	err    error
}

// normalize は analysisTimeout の範囲で本文を正規化し、所要時間をログに残します。
// 正規化はゴルーチンで実行し、期限が来たら結果を待たずに打ち切ります。
func (p *Processor) normalize(ctx context.Context, body string, log logger.Logger) ([]string, error) {
	analysisCtx, cancel := context.WithTimeout(ctx, p.analysisTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan normalizeResult, 1)
	go func() {
		lemmas, err := p.normalizer.Normalize(analysisCtx, body)
		done <- normalizeResult{lemmas: lemmas, err: err}
	}()

	var lemmas []string
	var err error
	select {
	case res := <-done:
		lemmas, err = res.lemmas, res.err
	case <-analysisCtx.Done():
		err = analysisCtx.Err()
	}
	elapsed := time.Since(start)

	p.metrics.ObserveAnalysis(elapsed)
	log.Info("記事の解析にかかった時間",
		logger.Duration("elapsed", elapsed),
		logger.String("elapsed_sec", fmt.Sprintf("%.2f", elapsed.Seconds())),
		logger.Int("words", len(lemmas)),
	)

	if err != nil {
		return nil, err
	}
	// 期限後に返ってきた結果は使わない
	if ctxErr := analysisCtx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return lemmas, nil
}

func invalidURLTitle(rawURL string) string {
	return fmt.Sprintf("URL %s Does not exist", rawURL)
}
