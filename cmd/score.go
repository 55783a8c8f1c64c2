package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-jaundice-rate/pkg/scraper"
	"github.com/shouni/go-jaundice-rate/pkg/types"
)

// コマンドラインフラグ変数を定義
var inputURLs string // --urls フラグで受け取るカンマ区切りのURLリスト

// readURLs は --urls が空の場合に標準入力からURLを一行ずつ読み込み、カンマ区切りに連結します。
func readURLs(flagValue string, stdin io.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	var lines []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("標準入力の読み取りエラー: %w", err)
	}
	return strings.Join(lines, ","), nil
}

// normalizeURLs は各URLにスキームがなければ https:// を補完します。
func normalizeURLs(urls []string) []string {
	normalized := make([]string, len(urls))
	for i, u := range urls {
		normalized[i] = ensureScheme(u)
	}
	return normalized
}

// writeResults は結果を JSON 配列として出力します。キリル文字や HTML 特殊文字はエスケープしません。
func writeResults(w io.Writer, results []types.ArticleResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("結果の出力に失敗しました: %w", err)
	}
	return nil
}

// runScorePipeline は、バッチ採点を実行して結果を書き出すメインロジックです。
func runScorePipeline(ctx context.Context, scorer *scraper.BatchScorer, raw string, w io.Writer) error {
	// 1. URLリストの解析 (HTTP API と同じ件数制限)
	urls, err := scraper.ParseURLList(raw, scorer.MaxURLs())
	if err != nil {
		return err
	}
	urls = normalizeURLs(urls)

	// 2. 採点
	results, err := scorer.ScoreBatch(ctx, urls)
	if err != nil {
		return err
	}

	// 3. 結果の出力
	return writeResults(w, results)
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "記事URLを並列に採点し、結果をJSONで出力します",
	Long:  `--urls フラグでカンマ区切りのURLリストを受け取るか、標準入力からURLを一行ずつ読み込み、各記事の扇情度を採点します。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := GetService()
		if err != nil {
			return err
		}
		defer func() { _ = svc.Logger.Sync() }()

		raw, err := readURLs(inputURLs, os.Stdin)
		if err != nil {
			return err
		}

		return runScorePipeline(cmd.Context(), svc.Scorer, raw, cmd.OutOrStdout())
	},
}

func init() {
	scoreCmd.Flags().StringVarP(&inputURLs, "urls", "u", "",
		"採点対象のカンマ区切りURLリスト (例: url1,url2,url3)")
}
