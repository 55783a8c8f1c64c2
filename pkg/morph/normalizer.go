// Package morph は本文を単語に分割し、各単語を辞書照合用の基本形に揃えます。
package morph

import (
	"context"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/russian"
	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCheckInterval は、キャンセルを確認する単語数の間隔です。
const DefaultCheckInterval = 64

// Normalizer は本文を基本形の列に変換します。
type Normalizer interface {
	// Normalize は text を単語に分割して基本形の列を返します。
	// ctx が終了した場合は途中結果を捨て、ctx.Err() を返します。
	Normalize(ctx context.Context, text string) ([]string, error)
	// Lemma は1語だけを基本形に変換します。
	Lemma(word string) string
}

// SnowballNormalizer は Unicode の単語境界で分割し、文字種に応じた Snowball ステマーで語幹化します。
// 状態を持たないため、複数のゴルーチンから共有できます。
type SnowballNormalizer struct {
	checkInterval int
}

// Option は SnowballNormalizer の設定関数です。
type Option func(*SnowballNormalizer)

// WithCheckInterval はキャンセル確認の間隔を設定します。
func WithCheckInterval(n int) Option {
	return func(s *SnowballNormalizer) {
		if n > 0 {
			s.checkInterval = n
		}
	}
}

// NewSnowballNormalizer は SnowballNormalizer を生成します。
func NewSnowballNormalizer(opts ...Option) *SnowballNormalizer {
	s := &SnowballNormalizer{checkInterval: DefaultCheckInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize は Normalizer インターフェースを満たします。
func (s *SnowballNormalizer) Normalize(ctx context.Context, text string) ([]string, error) {
	// cases.Caser はゴルーチン間で共有できないため呼び出しごとに生成する
	caser := cases.Lower(language.Russian)

	var lemmas []string
	state := -1
	rest := text
	for i := 0; len(rest) > 0; i++ {
		if i%s.checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var token string
		token, rest, state = uniseg.FirstWordInString(rest, state)
		if !isWord(token) {
			continue
		}
		lemmas = append(lemmas, stem(caser.String(token)))
	}

	return lemmas, nil
}

// Lemma は Normalizer インターフェースを満たします。
func (s *SnowballNormalizer) Lemma(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	return stem(cases.Lower(language.Russian).String(word))
}

// isWord は区切り文字や空白ではなく、文字か数字を含むセグメントかを判定します。
func isWord(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// stem は小文字化済みの単語を文字種に応じて語幹化します。
func stem(word string) string {
	word = strings.ReplaceAll(word, "ё", "е")
	switch {
	case hasScript(word, unicode.Cyrillic):
		return russian.Stem(word, false)
	case hasScript(word, unicode.Latin):
		return english.Stem(word, false)
	default:
		return word
	}
}

func hasScript(word string, table *unicode.RangeTable) bool {
	for _, r := range word {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}
