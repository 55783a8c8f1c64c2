// Package jaundice は記事の「желтушность」(扇情度) を算出します。
package jaundice

import "errors"

// ErrNoWords は単語が一つもないため割合を定義できないことを示します。
var ErrNoWords = errors.New("単語が一つもないため扇情度を算出できません")

// Lexicon は照合に使う単語集合です。*lexicon.Lexicon が満たします。
type Lexicon interface {
	Contains(word string) bool
}

// Rate は lemmas のうち辞書に含まれる語の割合をパーセントで返します。
// 結果は常に 0 以上 100 以下です。
func Rate(lemmas []string, lex Lexicon) (float64, error) {
	if len(lemmas) == 0 {
		return 0, ErrNoWords
	}

	charged := 0
	for _, w := range lemmas {
		if lex.Contains(w) {
			charged++
		}
	}
	return 100.0 * float64(charged) / float64(len(lemmas)), nil
}
