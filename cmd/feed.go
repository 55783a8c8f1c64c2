package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-jaundice-rate/pkg/config"
	"github.com/shouni/go-jaundice-rate/pkg/feed"
	"github.com/shouni/go-jaundice-rate/pkg/httpclient"
	"github.com/shouni/go-jaundice-rate/pkg/logger"
)

// フィードURLと件数を保持するフラグ変数
var (
	feedURL   string
	feedLimit int
)

const defaultFeedTimeout = 20 * time.Second

// newFeedClient はフィード取得用のクライアントを生成します。
// 記事取得用の fetch_timeout ではなく defaultFeedTimeout を上限にします。
func newFeedClient(cfg *config.Config) *httpclient.Client {
	return httpclient.New(defaultFeedTimeout,
		httpclient.WithMaxRetries(cfg.HTTP.MaxRetries),
		httpclient.WithUserAgent(cfg.HTTP.UserAgent),
	)
}

// runFeedPipeline は、フィードから対応する配信元の記事URLを選び出すメインロジックです。
func runFeedPipeline(ctx context.Context, parser *feed.Parser, url string, limit int, keep func(string) bool) ([]string, error) {
	// 1. フィード取得のコンテキストを設定
	fetchCtx, cancel := context.WithTimeout(ctx, defaultFeedTimeout)
	defer cancel()

	// 2. 取得と解析
	parsedFeed, err := parser.FetchAndParse(fetchCtx, url)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得およびパースエラー (URL: %s): %w", url, err)
	}

	// 3. 対応する配信元のリンクだけを先頭から limit 件
	links := feed.SelectLinks(feed.NewFeedAdapter(parsedFeed), limit, keep)
	if len(links) == 0 {
		return nil, fmt.Errorf("フィード %s に採点可能な記事がありません", url)
	}
	return links, nil
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "RSS/Atomフィードの最新記事を採点します",
	Long:  `指定されたURLからRSSまたはAtomフィードを取得し、対応する配信元の記事を最大 --limit 件採点して JSON で出力します。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := GetService()
		if err != nil {
			return err
		}
		defer func() { _ = svc.Logger.Sync() }()

		limit := feedLimit
		if limit <= 0 || limit > svc.Scorer.MaxURLs() {
			limit = svc.Scorer.MaxURLs()
		}

		parser, err := feed.NewParser(newFeedClient(svc.Config))
		if err != nil {
			return err
		}

		url := ensureScheme(feedURL)
		links, err := runFeedPipeline(cmd.Context(), parser, url, limit, svc.Supports)
		if err != nil {
			return err
		}
		svc.Logger.Info("フィードから記事を選びました",
			logger.String("feed", url),
			logger.Int("articles", len(links)),
		)

		results, err := svc.Scorer.ScoreBatch(cmd.Context(), links)
		if err != nil {
			return err
		}
		return writeResults(cmd.OutOrStdout(), results)
	},
}

func init() {
	feedCmd.Flags().StringVarP(&feedURL, "url", "u", "", "解析対象のフィード (RSS/Atom) URL")
	feedCmd.Flags().IntVar(&feedLimit, "limit", 0, "採点する記事の最大件数（既定はバッチ上限）")

	_ = feedCmd.MarkFlagRequired("url")
}
