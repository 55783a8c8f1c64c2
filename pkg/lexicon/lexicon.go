// Package lexicon は感情的な語 (charged words) の辞書を扱います。
package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmpty は辞書に単語が一つもないことを示します。
var ErrEmpty = errors.New("辞書が空です")

// FoldFunc は辞書の単語を照合用の形に変換する関数です。
type FoldFunc func(word string) string

// Lexicon は読み込み後に変更されない単語集合です。
type Lexicon struct {
	words map[string]struct{}
}

// New は単語のリストから Lexicon を生成します。空白のみの行は無視し、重複はまとめます。
// fold が nil の場合は前後の空白を除いた単語をそのまま使います。
func New(words []string, fold FoldFunc) (*Lexicon, error) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if fold != nil {
			w = fold(w)
			if w == "" {
				continue
			}
		}
		set[w] = struct{}{}
	}
	if len(set) == 0 {
		return nil, ErrEmpty
	}
	return &Lexicon{words: set}, nil
}

// Read は改行区切りの単語リストを読み込みます。
func Read(fold FoldFunc, readers ...io.Reader) (*Lexicon, error) {
	var words []string
	for _, r := range readers {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			words = append(words, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("辞書の読み込みに失敗しました: %w", err)
		}
	}
	return New(words, fold)
}

// LoadFiles は複数の辞書ファイルを結合して読み込みます。
func LoadFiles(fold FoldFunc, paths ...string) (*Lexicon, error) {
	readers := make([]io.Reader, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("辞書ファイル %s を開けません: %w", path, err)
		}
		defer f.Close()
		readers = append(readers, f)
	}

	lex, err := Read(fold, readers...)
	if err != nil {
		return nil, fmt.Errorf("辞書ファイル %v: %w", paths, err)
	}
	return lex, nil
}

// Contains は単語が辞書に含まれるかを返します。照合は完全一致です。
func (l *Lexicon) Contains(word string) bool {
	_, ok := l.words[word]
	return ok
}

// Len は辞書の単語数を返します。
func (l *Lexicon) Len() int {
	return len(l.words)
}
