package cmd

import (
	"net/url"
	"strings"
)

// ensureScheme は、URLのスキームが存在しない場合に https:// を補完します。
// 解析できないURLや http(s) 以外のスキームはそのまま返し、記事ごとの FETCH_ERROR として扱わせます。
// 空文字列は空のまま返します。
func ensureScheme(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme != "" {
		return rawURL
	}
	return "https://" + rawURL
}
