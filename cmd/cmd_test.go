package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-jaundice-rate/pkg/config"
	"github.com/shouni/go-jaundice-rate/pkg/feed"
	"github.com/shouni/go-jaundice-rate/pkg/httpclient"
	"github.com/shouni/go-jaundice-rate/pkg/scraper"
	"github.com/shouni/go-jaundice-rate/pkg/types"
)

type echoProcessor struct{}

func (echoProcessor) Process(_ context.Context, rawURL string) types.ArticleResult {
	return types.OK("«"+rawURL+"» & <b>", 0, 1)
}

type staticFetcher string

func (s staticFetcher) FetchBytes(context.Context, string) ([]byte, error) {
	return []byte(s), nil
}

func TestEnsureScheme(t *testing.T) {
	tests := map[string]string{
		"inosmi.ru/a.html":      "https://inosmi.ru/a.html",
		" https://inosmi.ru/a ": "https://inosmi.ru/a",
		"http://inosmi.ru/a":    "http://inosmi.ru/a",
		"ftp://inosmi.ru/a":     "ftp://inosmi.ru/a",
		"https://inosmi.ru/%zz": "https://inosmi.ru/%zz",
		"":                      "",
		"   ":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ensureScheme(in), in)
	}
}

func TestReadURLs(t *testing.T) {
	got, err := readURLs("a,b", strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "a,b", got)

	got, err = readURLs("", strings.NewReader("https://inosmi.ru/1\n\n  https://inosmi.ru/2 \n"))
	require.NoError(t, err)
	assert.Equal(t, "https://inosmi.ru/1,https://inosmi.ru/2", got)
}

func TestRunScorePipeline(t *testing.T) {
	scorer, err := scraper.NewBatchScorer(echoProcessor{}, scraper.WithMaxURLs(2))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runScorePipeline(context.Background(), scorer, "inosmi.ru/1, https://inosmi.ru/2", &out))

	assert.Contains(t, out.String(), "«https://inosmi.ru/1» & <b>", "output is not HTML-escaped")

	var results []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "OK", results[1]["status"])

	err = runScorePipeline(context.Background(), scorer, "a,b,c", &out)
	assert.True(t, scraper.IsBatchSizeError(err))

	err = runScorePipeline(context.Background(), scorer, "", &out)
	assert.True(t, scraper.IsBatchSizeError(err))
}

func TestRunScorePipeline_BlankItems(t *testing.T) {
	scorer, err := scraper.NewBatchScorer(echoProcessor{}, scraper.WithMaxURLs(3))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runScorePipeline(context.Background(), scorer, "inosmi.ru/1,,inosmi.ru/2", &out))

	var results []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "«» & <b>", results[1]["title"], "blank items are passed through without a scheme")

	err = runScorePipeline(context.Background(), scorer, ",,,inosmi.ru/1", &out)
	assert.True(t, scraper.IsBatchSizeError(err))
}

func TestRunFeedPipeline(t *testing.T) {
	const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>t</title>
<item><link>https://example.com/0</link></item>
<item><link>https://inosmi.ru/1</link></item>
<item><link>https://inosmi.ru/2</link></item>
<item><link>https://inosmi.ru/3</link></item>
</channel></rss>`

	parser, err := feed.NewParser(staticFetcher(rss))
	require.NoError(t, err)
	keep := func(link string) bool { return strings.HasPrefix(link, "https://inosmi.ru/") }

	links, err := runFeedPipeline(context.Background(), parser, "https://inosmi.ru/rss", 2, keep)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://inosmi.ru/1", "https://inosmi.ru/2"}, links)

	_, err = runFeedPipeline(context.Background(), parser, "https://inosmi.ru/rss", 2, func(string) bool { return false })
	assert.Error(t, err)
}

func TestNewFeedClient_IgnoresFetchTimeout(t *testing.T) {
	const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>t</title>
<item><link>https://inosmi.ru/1</link></item>
</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		_, _ = w.Write([]byte(rss))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Scoring.FetchTimeout = 20 * time.Millisecond
	cfg.HTTP.MaxRetries = 0

	// 記事取得用のタイムアウトでは間に合わない
	short, err := feed.NewParser(httpclient.New(cfg.Scoring.FetchTimeout, httpclient.WithMaxRetries(0)))
	require.NoError(t, err)
	_, err = runFeedPipeline(context.Background(), short, srv.URL, 1, nil)
	require.Error(t, err)

	parser, err := feed.NewParser(newFeedClient(cfg))
	require.NoError(t, err)
	links, err := runFeedPipeline(context.Background(), parser, srv.URL, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://inosmi.ru/1"}, links)
}
