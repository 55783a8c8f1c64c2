package feed

import (
	"strings"

	"github.com/mmcdole/gofeed"
)

// LinkSource は、記事URLのリストを提供できる任意の型を表します。
type LinkSource interface {
	Links() []string
}

// FeedAdapter は gofeed.Feed を LinkSource に適合させるためのアダプターです。
type FeedAdapter struct {
	*gofeed.Feed
}

// NewFeedAdapter は gofeed.Feed から新しいアダプターを作成します。
func NewFeedAdapter(feed *gofeed.Feed) *FeedAdapter {
	return &FeedAdapter{Feed: feed}
}

// Links はフィード内の順序のまま、空でない重複なしのリンクを返します。
func (a *FeedAdapter) Links() []string {
	if a == nil || a.Feed == nil || len(a.Items) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(a.Items))
	urls := make([]string, 0, len(a.Items))
	for _, item := range a.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		urls = append(urls, link)
	}
	return urls
}

// SelectLinks は source のリンクのうち keep を満たすものを先頭から最大 limit 件返します。
// keep が nil の場合はすべて採用し、limit が 0 以下の場合は件数を制限しません。
func SelectLinks(source LinkSource, limit int, keep func(string) bool) []string {
	if source == nil {
		return []string{}
	}

	selected := []string{}
	for _, link := range source.Links() {
		if limit > 0 && len(selected) >= limit {
			break
		}
		if keep != nil && !keep(link) {
			continue
		}
		selected = append(selected, link)
	}
	return selected
}
