// Package api は記事採点の HTTP API を提供します。
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shouni/go-jaundice-rate/pkg/logger"
	"github.com/shouni/go-jaundice-rate/pkg/scraper"
	"github.com/shouni/go-jaundice-rate/pkg/types"
)

// Scorer はバッチ採点の機能のインターフェースです。*scraper.BatchScorer が満たします。
type Scorer interface {
	ScoreBatch(ctx context.Context, urls []string) ([]types.ArticleResult, error)
	MaxURLs() int
}

// Config はルーターの依存と設定です。
type Config struct {
	Scorer Scorer
	Logger logger.Logger
	// Gatherer が nil の場合は /metrics を公開しません。
	Gatherer prometheus.Gatherer
	Debug    bool
}

// NewRouter は API のルーティングを設定した gin.Engine を返します。
func NewRouter(cfg Config) (*gin.Engine, error) {
	if cfg.Scorer == nil {
		return nil, errors.New("api.NewRouter: Scorer cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		RequestIDMiddleware(),
		LoggerMiddleware(cfg.Logger),
		RecoveryMiddleware(cfg.Logger),
	)

	h := &handler{scorer: cfg.Scorer, logger: cfg.Logger}
	router.GET("/", h.score)
	router.GET("/health", h.health)
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return router, nil
}

type handler struct {
	scorer Scorer
	logger logger.Logger
}

// score は GET /?urls=u1,u2 を処理し、入力順の結果を返します。
func (h *handler) score(c *gin.Context) {
	urls, err := scraper.ParseURLList(c.Query("urls"), h.scorer.MaxURLs())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.scorer.ScoreBatch(c.Request.Context(), urls)
	if err != nil {
		if scraper.IsBatchSizeError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	// キリル文字や HTML 特殊文字をエスケープせずにそのまま出力する
	c.PureJSON(http.StatusOK, results)
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
