package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shouni/go-jaundice-rate/pkg/api"
	"github.com/shouni/go-jaundice-rate/pkg/logger"
)

var servePort int // --port 設定ファイルの server.port を上書き

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "記事採点の HTTP API サーバーを起動します",
	Long:  `GET /?urls=url1,url2 で記事を採点する HTTP API を起動します。/health と /metrics も公開します。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := GetService()
		if err != nil {
			return err
		}
		log := svc.Logger
		defer func() { _ = log.Sync() }()

		cfg := svc.Config
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		// 1. ルーターの初期化
		router, err := api.NewRouter(api.Config{
			Scorer:   svc.Scorer,
			Logger:   log.With(logger.String("component", "api")),
			Gatherer: globalRegistry,
			Debug:    cfg.Server.Debug,
		})
		if err != nil {
			return fmt.Errorf("ルーターの初期化エラー: %w", err)
		}

		// 2. シグナルで終了するコンテキスト
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 3. サーバーの起動
		srv := api.NewServer(fmt.Sprintf(":%d", port), router)
		return api.Run(ctx, srv, log, cfg.Server.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "待ち受けポート（省略時は設定ファイルの server.port）")
}
