package cmd

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-jaundice-rate/internal/pipeline"
	"github.com/shouni/go-jaundice-rate/pkg/config"
	"github.com/shouni/go-jaundice-rate/pkg/logger"
)

// --- グローバル定数 ---

const appName = "jaundice-rate"

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	ConfigPath string // --config-path 設定ファイル
	TimeoutSec int    // --timeout 記事取得のタイムアウト（秒）
	MaxRetries uint64 // --max-retries リトライ回数
}

var Flags AppFlags

var (
	globalService  *pipeline.Service
	globalRegistry *prometheus.Registry
)

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(
		&Flags.ConfigPath,
		"config-path",
		"",
		"YAML設定ファイルのパス（省略時は既定値と環境変数のみ）",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		0,
		"記事取得のタイムアウト時間（秒）。指定時は設定ファイルより優先",
	)
	rootCmd.PersistentFlags().Uint64Var(
		&Flags.MaxRetries,
		"max-retries",
		0,
		"HTTPリクエストのリトライ最大回数。指定時は設定ファイルより優先",
	)
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// 設定の読み込みと共有サービスの初期化を行います。
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	// 1. 設定の読み込み
	cfg, err := config.Load(Flags.ConfigPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	// 2. ロガーの初期化
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return err
	}

	// 3. 共有サービスの初期化
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc, err := pipeline.New(cfg, log, registry)
	if err != nil {
		log.Error("初期化に失敗しました", logger.Error(err))
		return fmt.Errorf("初期化エラー: %w", err)
	}

	log.Debug("設定を読み込みました",
		logger.Duration("fetch_timeout", cfg.Scoring.FetchTimeout),
		logger.Duration("analysis_timeout", cfg.Scoring.AnalysisTimeout),
		logger.Int("max_urls", cfg.Scoring.MaxURLs),
		logger.Int("max_concurrency", cfg.Concurrency()),
		logger.Strings("allowed_hosts", svc.Sources.Hosts()),
	)

	globalService = svc
	globalRegistry = registry
	return nil
}

// applyFlagOverrides は明示的に指定されたフラグだけを設定に反映します。
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("timeout") && Flags.TimeoutSec > 0 {
		cfg.Scoring.FetchTimeout = time.Duration(Flags.TimeoutSec) * time.Second
	}
	if flags.Changed("max-retries") {
		cfg.HTTP.MaxRetries = Flags.MaxRetries
	}
	// clibase.Flags.Verbose は clibase の PersistentPreRunE で設定済み
	if clibase.Flags.Verbose {
		cfg.Log.Level = "debug"
	}
}

// GetService は、初期化された共有サービスを返す関数 (DIの代わり)
func GetService() (*pipeline.Service, error) {
	if globalService == nil {
		return nil, fmt.Errorf("サービスが初期化されていません")
	}
	return globalService, nil
}

// --- エントリポイント ---

// Execute は、clibase.Execute でルートコマンドを組み立てて実行します。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		serveCmd,
		scoreCmd,
		feedCmd,
	)
}
