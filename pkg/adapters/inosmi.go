package adapters

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"
	"golang.org/x/net/html"
)

// ----------------------------------------------------------------------
// 定数定義 (inosmi.ru のマークアップ構造)
// ----------------------------------------------------------------------
const (
	inosmiArticleSelector = "article.article"
	inosmiNoiseSelectors  = ".article-disclaimer, footer.article-footer, aside, script, style, noscript"
)

// inlineTags はテキスト結合時に区切りを入れない要素です。
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "cite": true, "code": true, "em": true,
	"i": true, "mark": true, "q": true, "s": true, "small": true, "span": true,
	"strong": true, "sub": true, "sup": true, "time": true, "u": true,
}

// Inosmi は inosmi.ru 用の SiteAdapter です。
type Inosmi struct{}

// NewInosmi は inosmi.ru のアダプターを返します。
func NewInosmi() *Inosmi {
	return &Inosmi{}
}

// Hosts は SiteAdapter インターフェースを満たします。
func (a *Inosmi) Hosts() []string {
	return []string{"inosmi.ru", "www.inosmi.ru"}
}

// Extract は記事コンテナがちょうど1つの場合にだけ本文とタイトルを返します。
func (a *Inosmi) Extract(markup string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", "", fmt.Errorf("HTML解析に失敗しました: %w", err)
	}

	// 1. 記事コンテナの特定 (曖昧な場合は失敗とする)
	articles := doc.Find(inosmiArticleSelector)
	if articles.Length() != 1 {
		return "", "", fmt.Errorf("%w: %q が %d 件見つかりました", ErrArticleNotFound, inosmiArticleSelector, articles.Length())
	}
	article := articles.First()

	// 2. ノイズ要素の除去
	article.Find(inosmiNoiseSelectors).Remove()

	// 3. プレーンテキスト化
	body := normalizeText(plainText(article))
	title := normalizeText(doc.Find("title").First().Text())

	return body, title, nil
}

// plainText は要素の境界に空白を挟みながらテキストノードを連結します。
// goquery の Text() は <p>a</p><p>b</p> を "ab" にしてしまうため自前で走査します。
func plainText(sel *goquery.Selection) string {
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && !inlineTags[n.Data] {
			b.WriteByte(' ')
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

func normalizeText(text string) string {
	text = textUtils.NormalizeText(text)
	return strings.Join(strings.Fields(text), " ")
}
