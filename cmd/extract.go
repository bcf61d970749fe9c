package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/martinsmeder/AI-agent-test/internal/logger"
	"github.com/martinsmeder/AI-agent-test/pkg/extract"
	"github.com/martinsmeder/AI-agent-test/pkg/scraper"
	"github.com/martinsmeder/AI-agent-test/pkg/source"
	"github.com/martinsmeder/AI-agent-test/pkg/types"
)

const contentPreviewMax = 100

var extractSource string

// genericExtractor は、取得元を指定しない場合に使う本文抽出器です。
var genericExtractor = extract.New(extract.Options{
	Regions: []extract.Region{extract.ArticleRegion, extract.MainRegion},
})

var extractCmd = &cobra.Command{
	Use:   "extract [URL...]",
	Short: "記事ページを取得し、取得元と同じ規則で本文を抽出して表示します",
	Long: `引数または標準入力 (1行1URL) で受け取った記事ページを並列に取得し、本文を抽出して表示します。
--source を指定すると、その取得元の本文抽出規則 (本文領域、フッターの除去、ナビゲーション文言での切り詰め) を使います。`,

	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 本文抽出器の決定
		extractor, err := extractorFor(extractSource)
		if err != nil {
			return err
		}

		// 2. 処理対象URLのリストを決定
		urls := args
		if len(urls) == 0 {
			logger.Log.Info("URLが指定されていないため、標準入力からURLを読み込みます (Ctrl+DまたはEOFで終了)...")
			urls, err = readURLs(os.Stdin)
			if err != nil {
				return err
			}
		}
		urls, err = normalizeURLs(urls)
		if err != nil {
			return err
		}

		// 3. 並列取得
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ps, err := scraper.NewParallelScraper(globalFetcher, extractor, appConfig.ItemConcurrency)
		if err != nil {
			return err
		}
		results := ps.ScrapeInParallel(ctx, urls)

		// 4. 結果の出力
		if failed := printExtractResults(cmd.OutOrStdout(), results); failed == len(results) {
			return fmt.Errorf("すべてのURLで本文の取得に失敗しました")
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractSource, "source", "s", "",
		fmt.Sprintf("本文抽出規則を借りる取得元 (%s)", strings.Join(source.Names(), ", ")))
}

// extractorFor は、取得元の本文抽出器を返します。取得元が空、または記事ページを取得しない取得元の場合は汎用の抽出器です。
func extractorFor(name string) (extract.ContentExtractor, error) {
	if name == "" {
		return genericExtractor, nil
	}
	spec, ok := source.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("未知の取得元です: %s", name)
	}
	if spec.Content == nil {
		logger.Log.Debugf("%s は記事ページを取得しないため汎用の抽出器を使います", name)
		return genericExtractor, nil
	}
	return spec.Content, nil
}

// readURLs は、1行1URLで読み込みます。空行は無視します。
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if u := strings.TrimSpace(scanner.Text()); u != "" {
			urls = append(urls, u)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("標準入力の読み取りエラー: %w", err)
	}
	return urls, nil
}

// normalizeURLs は、各URLを検証してスキームを補完します。
func normalizeURLs(urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("処理対象のURLが一つも指定されていません")
	}
	out := make([]string, len(urls))
	for i, u := range urls {
		fixed, err := normalizeArticleURL(u)
		if err != nil {
			return nil, err
		}
		out[i] = fixed
	}
	return out, nil
}

// printExtractResults は、抽出結果を表示し、失敗した件数を返します。
func printExtractResults(w io.Writer, results []types.URLResult) int {
	fmt.Fprintln(w, "--- 本文抽出結果 ---")

	failed := 0
	for i, res := range results {
		if res.Error != nil {
			failed++
			fmt.Fprintf(w, "NG [%d] %s\n", i+1, res.URL)
			fmt.Fprintf(w, "     エラー: %v\n", res.Error)
			continue
		}
		fmt.Fprintf(w, "OK [%d] %s\n", i+1, res.URL)
		fmt.Fprintf(w, "     抽出コンテンツの長さ: %d 文字\n", utf8.RuneCountInString(res.Content))
		if res.Content == "" {
			fmt.Fprintln(w, "     (使える本文が見つかりませんでした)")
		} else {
			fmt.Fprintf(w, "     プレビュー: %s\n", preview(res.Content, contentPreviewMax))
		}
	}

	fmt.Fprintln(w, "-------------------------------")
	fmt.Fprintf(w, "完了: 成功 %d 件, 失敗 %d 件\n", len(results)-failed, failed)
	return failed
}
