package adapters

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrArticleNotFound は、マークアップから記事をひとつに特定できなかったことを示します。
// コンテナが0件でも2件以上でも同じ扱いです。
var ErrArticleNotFound = errors.New("Article not found")

// ----------------------------------------------------------------------
// 依存性の定義
// ----------------------------------------------------------------------

// SiteAdapter は、特定の配信元のHTMLから記事のタイトルと本文を取り出します。
// 実装は副作用を持たず、入力マークアップだけに依存します。
type SiteAdapter interface {
	// Hosts はこのアダプターが担当するホスト名の一覧を返します。
	Hosts() []string
	// Extract はマークアップからプレーンテキストの本文とタイトルを返します。
	Extract(markup string) (body string, title string, err error)
}

// Registry はホスト名からアダプターを引くための読み取り専用の表です。
// 起動時に組み立てた後は変更しないため、ロックなしで共有できます。
type Registry struct {
	adapters map[string]SiteAdapter
}

// NewRegistry は、各アダプターの Hosts() をキーにした Registry を生成します。
// 同じホストを複数のアダプターが名乗った場合は後勝ちです。
func NewRegistry(adapters ...SiteAdapter) *Registry {
	r := &Registry{adapters: make(map[string]SiteAdapter)}
	for _, a := range adapters {
		for _, host := range a.Hosts() {
			r.adapters[normalizeHost(host)] = a
		}
	}
	return r
}

// Default は組み込みのアダプターをすべて登録した Registry を返します。
func Default() *Registry {
	return NewRegistry(NewInosmi())
}

// Lookup はホスト名に対応するアダプターを返します。大文字小文字は区別しません。
func (r *Registry) Lookup(host string) (SiteAdapter, bool) {
	a, ok := r.adapters[normalizeHost(host)]
	return a, ok
}

// Restrict は allowed に含まれるホストだけを残した新しい Registry を返します。
// アダプターが存在しないホストが含まれている場合はエラーです。
func (r *Registry) Restrict(allowed []string) (*Registry, error) {
	restricted := &Registry{adapters: make(map[string]SiteAdapter, len(allowed))}
	for _, host := range allowed {
		key := normalizeHost(host)
		if key == "" {
			continue
		}
		a, ok := r.adapters[key]
		if !ok {
			return nil, fmt.Errorf("ホスト %s に対応するアダプターがありません", host)
		}
		restricted.adapters[key] = a
	}
	if len(restricted.adapters) == 0 {
		return nil, errors.New("許可されたホストが一つもありません")
	}
	return restricted, nil
}

// Hosts は登録済みのホスト名をソートして返します。
func (r *Registry) Hosts() []string {
	hosts := make([]string, 0, len(r.adapters))
	for h := range r.adapters {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}
