package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-jaundice-rate/pkg/config"
	"github.com/shouni/go-jaundice-rate/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	neg := filepath.Join(dir, "negative_words.txt")
	pos := filepath.Join(dir, "positive_words.txt")
	require.NoError(t, os.WriteFile(neg, []byte("скандал\nшок\n"), 0o600))
	require.NoError(t, os.WriteFile(pos, []byte("успех\n\nшок\n"), 0o600))

	cfg := config.Default()
	cfg.Lexicon.Paths = []string{neg, pos}
	return cfg
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scoring.RequestsPerSecond = 5

	svc, err := New(cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)

	assert.Equal(t, 3, svc.Lexicon.Len(), "dictionaries are merged and deduplicated")
	assert.Equal(t, []string{"inosmi.ru"}, svc.Sources.Hosts())
	assert.Equal(t, 10, svc.Scorer.MaxURLs())
	assert.True(t, svc.Lexicon.Contains(svc.Normalizer.Lemma("скандалы")))
}

func TestNew_Errors(t *testing.T) {
	t.Run("nil_config", func(t *testing.T) {
		_, err := New(nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("missing_lexicon", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Lexicon.Paths = []string{filepath.Join(t.TempDir(), "missing.txt")}
		_, err := New(cfg, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "辞書")
	})

	t.Run("unsupported_host", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Sources.AllowedHosts = []string{"example.com"}
		_, err := New(cfg, nil, nil)
		assert.Error(t, err)
	})

	t.Run("duplicate_metrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		_, err := New(testConfig(t), nil, reg)
		require.NoError(t, err)
		_, err = New(testConfig(t), nil, reg)
		assert.Error(t, err)
	})
}

func TestSupports(t *testing.T) {
	svc, err := New(testConfig(t), nil, nil)
	require.NoError(t, err)

	assert.True(t, svc.Supports("https://inosmi.ru/politic/1.html"))
	assert.True(t, svc.Supports("https://INOSMI.ru:443/politic/1.html"))
	assert.False(t, svc.Supports("https://example.com/1.html"))
	assert.False(t, svc.Supports("https://inosmi.ru/%zz"))
}

func TestScorer_RejectsWithoutNetwork(t *testing.T) {
	svc, err := New(testConfig(t), nil, nil)
	require.NoError(t, err)

	results, err := svc.Scorer.ScoreBatch(context.Background(), []string{"https://nonexistentUrl.com/test_articlle"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusParsingError, results[0].Status)
	assert.Equal(t, "Статья на nonexistentUrl.com", results[0].TitleOrEmpty())
}
