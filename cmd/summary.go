package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	textUtils "github.com/shouni/go-utils/text"

	"github.com/martinsmeder/AI-agent-test/internal/pipeline"
)

const (
	nameColumnWidth = 20
	titlePreviewMax = 60
	previewPerSrc   = 3
)

// preview は、改行や連続する空白を1つにまとめ、表示幅 width に収まるよう切り詰めます。
func preview(s string, width int) string {
	line := strings.Join(strings.Fields(textUtils.NormalizeText(s)), " ")
	return runewidth.Truncate(line, width, "...")
}

// printSummary は、取得元ごとの件数と書き出したファイルを一覧表示します。
func printSummary(w io.Writer, report *pipeline.Report) {
	fmt.Fprintf(w, "--- 取得結果 (基準日: %s) ---\n", report.Today.Format(todayLayout))

	for _, sr := range report.Result.Sources {
		status := "OK"
		if sr.Err != nil {
			status = "NG"
		}
		fmt.Fprintf(w, "%s %s %4d件 (%s)\n",
			runewidth.FillRight(sr.Adapter.Name(), nameColumnWidth), status, len(sr.Records), sr.Elapsed.Round(time.Millisecond))
		if sr.Err != nil {
			fmt.Fprintf(w, "     エラー: %v\n", sr.Err)
			continue
		}
		for i, rec := range sr.Records {
			if i == previewPerSrc {
				fmt.Fprintf(w, "     ... 他 %d 件\n", len(sr.Records)-previewPerSrc)
				break
			}
			fmt.Fprintf(w, "     - %s\n", preview(rec.Title, titlePreviewMax))
		}
	}

	fmt.Fprintln(w, "-------------------------------")
	fmt.Fprintf(w, "完了: 成功 %d 件, 失敗 %d 件, 合計 %d レコード\n",
		len(report.Result.Succeeded), len(report.Result.Failures), len(report.Result.Records))

	names := make([]string, 0, len(report.Outputs))
	for name := range report.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		paths := report.Outputs[name]
		fmt.Fprintf(w, "出力: %s, %s\n", paths.JSON, paths.CSV)
	}
}
