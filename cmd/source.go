package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martinsmeder/AI-agent-test/pkg/source"
)

var sourceCmd = &cobra.Command{
	Use:   "source [NAME]",
	Short: "1つの取得元だけを実行し、その取得元のファイルを書き出します",
	Long: fmt.Sprintf(`指定した取得元だけを実行し、取得元ごとのベース名で JSON / CSV を書き出します。
設定で無効にした取得元も実行できます。

取得元: %s`, strings.Join(source.Names(), ", ")),
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner, err := newRunner(false)
		if err != nil {
			return err
		}

		report, err := runner.RunSource(ctx, args[0])
		if report != nil {
			printSummary(cmd.OutOrStdout(), report)
		}
		return err
	},
}
