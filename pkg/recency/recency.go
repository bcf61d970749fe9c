package recency

import (
	"net/mail"
	"strings"
	"time"
)

// ----------------------------------------------------------------------
// 日付文法
// ----------------------------------------------------------------------

// Grammar は、日付文字列を暦日に変換する関数です。解釈できない場合は ok=false を返します。
type Grammar func(dateText string) (day time.Time, ok bool)

// RFC2822 は、フィードの pubDate (例: "Mon, 02 Jan 2006 15:04:05 -0700") を解釈します。
// 暦日は文字列に書かれたタイムゾーンのまま取り出し、ローカル時刻へは変換しません。
func RFC2822(dateText string) (time.Time, bool) {
	dateText = strings.TrimSpace(dateText)
	if dateText == "" {
		return time.Time{}, false
	}
	t, err := mail.ParseDate(dateText)
	if err != nil {
		// RFC1123 の "GMT" 表記や曜日なし表記など、mail.ParseDate が拒否する揺れを補う
		for _, layout := range []string{time.RFC1123Z, time.RFC1123, "2 Jan 2006 15:04:05 MST", time.RFC3339} {
			if parsed, perr := time.Parse(layout, dateText); perr == nil {
				return civil(parsed), true
			}
		}
		return time.Time{}, false
	}
	return civil(t), true
}

// Layouts は、time.Parse のレイアウトを順に試す Grammar を生成します。
func Layouts(layouts ...string) Grammar {
	return func(dateText string) (time.Time, bool) {
		dateText = strings.TrimSpace(dateText)
		if dateText == "" {
			return time.Time{}, false
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, dateText); err == nil {
				return civil(t), true
			}
		}
		return time.Time{}, false
	}
}

var (
	// MonthDayYear は "January 02, 2006" 形式です。
	MonthDayYear = Layouts("January 02, 2006", "January 2, 2006")
	// SlashDate は "1/2/2006" 形式です (ゼロ埋めの有無を問わない)。
	SlashDate = Layouts("1/2/2006")
	// ISODate は "2006-01-02" 形式です。
	ISODate = Layouts("2006-01-02")
)

// civil は時刻部分を落とし、UTC の暦日として表現します。
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ----------------------------------------------------------------------
// 期間判定
// ----------------------------------------------------------------------

// Window は、基準日 (today) から遡る N 日間の期間です。両端を含みます。
// today は実行ごとに一度だけ決め、全アイテムで共有します。
type Window struct {
	today time.Time
	days  int
}

// NewWindow は、基準時刻と日数から Window を生成します。days が 0 以下の場合は絞り込みを行いません。
func NewWindow(today time.Time, days int) Window {
	return Window{today: civil(today), days: days}
}

// Today は基準日を返します。
func (w Window) Today() time.Time {
	return w.today
}

// Days は期間の日数を返します。
func (w Window) Days() int {
	return w.days
}

// Enabled は、絞り込みが有効かどうかを返します。
func (w Window) Enabled() bool {
	return w.days > 0
}

// Start は期間の開始日 (today - (days-1)) を返します。
func (w Window) Start() time.Time {
	if !w.Enabled() {
		return time.Time{}
	}
	return w.today.AddDate(0, 0, -(w.days - 1))
}

// Contains は、暦日が期間内にあるかを判定します。
func (w Window) Contains(day time.Time) bool {
	if !w.Enabled() {
		return true
	}
	day = civil(day)
	return !day.Before(w.Start()) && !day.After(w.today)
}

// InWindow は、日付文字列を文法で解釈し、期間内にあるかを判定します。
// 絞り込みが無効な場合は常に true、解釈できない場合は false を返します。
func (w Window) InWindow(dateText string, grammar Grammar) bool {
	if !w.Enabled() {
		return true
	}
	if grammar == nil {
		return false
	}
	day, ok := grammar(dateText)
	if !ok {
		return false
	}
	return w.Contains(day)
}
