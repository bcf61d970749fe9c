package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runPerSource bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "有効なすべての取得元から記事を収集し、統合ファイルを書き出します",
	Long: `有効なすべての取得元を並行して実行し、成功した取得元のレコードを宣言順に統合して
combined_sources.json / combined_sources.csv に書き出します。
一部の取得元が失敗しても、1つでも成功すれば終了ステータスは 0 です。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner, err := newRunner(runPerSource)
		if err != nil {
			return err
		}

		report, err := runner.RunAll(ctx)
		if report != nil {
			printSummary(cmd.OutOrStdout(), report)
		}
		return err
	},
}

func init() {
	runCmd.Flags().BoolVar(&runPerSource, "per-source", false, "統合ファイルに加えて取得元ごとのファイルも書き出す")
}
