package types

// DefaultFields は、出力列の順序です。JSON のキー名と CSV のヘッダーに共通で使われます。
var DefaultFields = []string{"title", "url", "date", "content"}

// Candidate は、一覧ページ (フィード/HTML/API) から抽出された、本文取得前の記事です。
type Candidate struct {
	Title    string // 正規化済みタイトル (空にはならない)
	URL      string // 絶対URL。重複排除のキー
	Date     string // 取得元の日付文字列 (加工しない)
	Category string // 任意のカテゴリ
	Content  string // フィードの description など、暫定の本文
}

// Record は、出力の最小単位です。
// Date は取得元の文字列をそのまま保持し、正規化した日付型には変換しません。
type Record struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// ToRecord は Candidate を Record に昇格させます。
func (c Candidate) ToRecord() Record {
	return Record{
		Title:   c.Title,
		URL:     c.URL,
		Date:    c.Date,
		Content: c.Content,
	}
}

// Field は、列名に対応する値を返します。未知の列名は空文字列になります。
func (r Record) Field(name string) string {
	switch name {
	case "title":
		return r.Title
	case "url":
		return r.URL
	case "date":
		return r.Date
	case "content":
		return r.Content
	}
	return ""
}

// URLResult は、特定のURLから抽出された結果、またはその処理中に発生したエラーを保持します。
// 個別記事の並列取得 (scraper) の出力として利用されます。
type URLResult struct {
	URL     string // 処理対象のURL
	Content string // 抽出された記事の本文 (使える本文がない場合は空)
	Error   error  // 取得中に発生したエラー
}
