package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shouni/go-jaundice-rate/pkg/logger"
)

// DefaultShutdownTimeout はグレースフルシャットダウンの既定の待ち時間です。
const DefaultShutdownTimeout = 10 * time.Second

// NewServer は handler を公開する http.Server を生成します。
// WriteTimeout はバッチ全体の処理時間より長くしておく必要があります。
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run はサーバーを起動し、ctx が終了したらグレースフルシャットダウンします。
func Run(ctx context.Context, srv *http.Server, log logger.Logger, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTPサーバーを起動します", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("シャットダウンを開始します", logger.Duration("timeout", shutdownTimeout))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	log.Info("HTTPサーバーを停止しました")
	return nil
}
