// Package scraper は複数の記事URLを並列に採点し、入力順のまま結果を返します。
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/go-jaundice-rate/pkg/logger"
	"github.com/shouni/go-jaundice-rate/pkg/metrics"
	"github.com/shouni/go-jaundice-rate/pkg/types"
)

const (
	// DefaultMaxURLs は、1回のバッチで受け付けるURLの上限です。
	DefaultMaxURLs = 10
	// DefaultMaxConcurrency は、並列処理のデフォルトの最大同時実行数を定義します。
	DefaultMaxConcurrency = DefaultMaxURLs
)

// ErrEmptyBatch は URL が1件も指定されなかった場合のエラーです。
var ErrEmptyBatch = errors.New("no urls given")

// BatchSizeError は、バッチの件数が許容範囲外であることを示すエラーです。
type BatchSizeError struct {
	Count int
	Max   int
}

func (e *BatchSizeError) Error() string {
	if e.Count == 0 {
		return ErrEmptyBatch.Error()
	}
	return fmt.Sprintf("too many urls in request, should be %d or less", e.Max)
}

// Is により errors.Is(err, ErrEmptyBatch) で空バッチを判定できます。
func (e *BatchSizeError) Is(target error) bool {
	return target == ErrEmptyBatch && e.Count == 0
}

// IsBatchSizeError は err が BatchSizeError かどうかを判定します。
func IsBatchSizeError(err error) bool {
	var target *BatchSizeError
	return errors.As(err, &target)
}

// ArticleProcessor は記事1件を処理する機能のインターフェースです。
// *processor.Processor が満たします。
type ArticleProcessor interface {
	Process(ctx context.Context, rawURL string) types.ArticleResult
}

// Option は BatchScorer の設定関数です。
type Option func(*BatchScorer)

// WithMaxURLs はバッチの上限件数を設定します。
func WithMaxURLs(n int) Option {
	return func(s *BatchScorer) {
		if n > 0 {
			s.maxURLs = n
		}
	}
}

// WithMaxConcurrency は最大同時実行数を設定します。
func WithMaxConcurrency(n int) Option {
	return func(s *BatchScorer) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

// WithRateLimiter は取得開始の間隔を制限するリミッターを設定します。nil なら無制限です。
func WithRateLimiter(l *rate.Limiter) Option {
	return func(s *BatchScorer) {
		s.limiter = l
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l logger.Logger) Option {
	return func(s *BatchScorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics はメトリクスの記録先を設定します。
func WithMetrics(m *metrics.Collector) Option {
	return func(s *BatchScorer) {
		s.metrics = m
	}
}

// BatchScorer は ArticleProcessor を並列に呼び出すバッチ処理構造体です。
type BatchScorer struct {
	processor      ArticleProcessor
	maxURLs        int
	maxConcurrency int
	limiter        *rate.Limiter
	logger         logger.Logger
	metrics        *metrics.Collector
}

// NewBatchScorer は BatchScorer を初期化します。
func NewBatchScorer(processor ArticleProcessor, opts ...Option) (*BatchScorer, error) {
	if processor == nil {
		return nil, errors.New("scraper.NewBatchScorer: processor cannot be nil")
	}
	s := &BatchScorer{
		processor:      processor,
		maxURLs:        DefaultMaxURLs,
		maxConcurrency: DefaultMaxConcurrency,
		logger:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MaxURLs はバッチの上限件数を返します。
func (s *BatchScorer) MaxURLs() int {
	return s.maxURLs
}

// ScoreBatch はすべてのURLを並列に処理し、入力と同じ順序で結果を返します。
// 件数が 0 または上限を超える場合は、何も取得せずに *BatchSizeError を返します。
// 個々の記事の失敗は結果の Status で表し、エラーにはしません。
func (s *BatchScorer) ScoreBatch(ctx context.Context, urls []string) ([]types.ArticleResult, error) {
	if len(urls) == 0 || len(urls) > s.maxURLs {
		return nil, &BatchSizeError{Count: len(urls), Max: s.maxURLs}
	}

	start := time.Now()
	results := make([]types.ArticleResult, len(urls))

	var wg sync.WaitGroup
	// バッファ付きチャネルをセマフォとして使用し、同時実行数を制限する
	semaphore := make(chan struct{}, s.maxConcurrency)

	for i, u := range urls {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					s.logger.Warn("レートリミットの待機中に中断されました", logger.String("url", u), logger.Error(err))
					s.metrics.ObserveArticle(string(types.StatusTimeout))
					results[i] = types.Failure(types.StatusTimeout, "TimeOut error")
					return
				}
			}

			// 各ゴルーチンは自分の添字にだけ書き込むため、ロックは不要
			results[i] = s.processor.Process(ctx, u)
		}(i, u)
	}

	wg.Wait()

	elapsed := time.Since(start)
	s.metrics.ObserveBatch(len(urls), elapsed)
	s.logger.Info("バッチ処理が完了しました",
		logger.Int("urls", len(urls)),
		logger.Duration("elapsed", elapsed),
	)

	return results, nil
}

// ParseURLList はカンマ区切りのURLリストを分割し、各要素の前後の空白を除きます。
// 空の要素も1件として残し、記事ごとの結果で PARSING_ERROR として返させます。
// raw が空、または要素数が maxURLs を超える場合は *BatchSizeError を返します。
func ParseURLList(raw string, maxURLs int) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &BatchSizeError{Count: 0, Max: maxURLs}
	}

	parts := strings.Split(raw, ",")
	if maxURLs > 0 && len(parts) > maxURLs {
		return nil, &BatchSizeError{Count: len(parts), Max: maxURLs}
	}

	urls := make([]string, len(parts))
	for i, part := range parts {
		urls[i] = strings.TrimSpace(part)
	}
	return urls, nil
}
