package types

// Status は記事ごとの処理結果の区分です。
type Status string

const (
	StatusOK           Status = "OK"
	StatusFetchError   Status = "FETCH_ERROR"
	StatusParsingError Status = "PARSING_ERROR"
	StatusTimeout      Status = "TIMEOUT"
)

// ArticleResult は、1つのURLに対する解析結果を保持します。
// Score と WordsCount は Status が OK の場合にのみ設定されます。
type ArticleResult struct {
	Title      *string  `json:"title"`
	Status     Status   `json:"status"`
	Score      *float64 `json:"score"`
	WordsCount *int     `json:"words_count"`
}

// OK は成功結果を生成します。
func OK(title string, score float64, wordsCount int) ArticleResult {
	return ArticleResult{
		Title:      &title,
		Status:     StatusOK,
		Score:      &score,
		WordsCount: &wordsCount,
	}
}

// Failure は失敗結果を生成します。score と words_count は常に null になります。
func Failure(status Status, title string) ArticleResult {
	return ArticleResult{
		Title:  &title,
		Status: status,
	}
}

// IsOK は結果が成功かどうかを返します。
func (r ArticleResult) IsOK() bool {
	return r.Status == StatusOK
}

// TitleOrEmpty はタイトルを返します。タイトルがない場合は空文字列です。
func (r ArticleResult) TitleOrEmpty() string {
	if r.Title == nil {
		return ""
	}
	return *r.Title
}
