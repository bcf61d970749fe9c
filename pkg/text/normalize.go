package text

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ----------------------------------------------------------------------
// 正規表現 (パッケージレベルで一度だけコンパイル)
// ----------------------------------------------------------------------

var (
	lineBreakRe   = regexp.MustCompile(`(?is)<br\s*/?>`)
	blockCloseRe  = regexp.MustCompile(`(?is)</(p|div|li|h1|h2|h3|h4|h5|h6|tr|ul|ol|blockquote|section|article)>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]+>`)
	multiSpaceRe  = regexp.MustCompile(`[ \t]{2,}`)
	trailingWSRe  = regexp.MustCompile(`[ \t]+\n`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
	anyWSRe       = regexp.MustCompile(`\s+`)
)

// Normalize は、マークアップまたはテキストを比較可能なプレーンテキストに整形します。
//
//  1. HTML/XML 実体参照の展開
//  2. <br> とブロック要素の閉じタグを改行に変換 (タグ除去より先に行い段落境界を保つ)
//  3. 残りのタグを除去
//  4. 空白の連続を1つに、改行直前の空白を削除、3つ以上の改行を2つに
//  5. 前後の空白をトリム
//
// 自身の出力に再適用しても結果は変わりません。
func Normalize(raw string) string {
	s := unescape(raw)
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = blockCloseRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = trailingWSRe.ReplaceAllString(s, "\n")
	s = multiNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Collapse は、実体参照を展開したうえで改行を含むすべての空白を1つの半角スペースにまとめます。
// タイトルや API から得た抄録など、1行で扱うテキスト向けです。
func Collapse(raw string) string {
	s := unescape(raw)
	s = anyWSRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// unescape は、多重にエスケープされた実体参照を変化がなくなるまで展開します。
// 展開のたびに文字列は短くなるため、必ず停止します。
func unescape(s string) string {
	for {
		next := html.UnescapeString(s)
		if next == s {
			return s
		}
		s = next
	}
}
