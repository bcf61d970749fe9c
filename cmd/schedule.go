package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martinsmeder/AI-agent-test/internal/logger"
	"github.com/martinsmeder/AI-agent-test/internal/scheduler"
)

var (
	scheduleCron   string
	scheduleRunNow bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "cron 書式の間隔で run を繰り返し実行します",
	Long: `設定ファイルの cron (または --cron) の間隔で、有効なすべての取得元の収集を繰り返します。
前回の実行が終わっていない場合、その回はスキップします。SIGINT / SIGTERM で停止します。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		spec := appConfig.Cron
		if scheduleCron != "" {
			spec = scheduleCron
		}

		runner, err := newRunner(false)
		if err != nil {
			return err
		}

		s, err := scheduler.New(spec, func(ctx context.Context) error {
			report, err := runner.RunAll(ctx)
			if report != nil {
				printSummary(cmd.OutOrStdout(), report)
			}
			return err
		})
		if err != nil {
			return err
		}

		logger.Log.WithFields(logger.Fields{"cron": spec, "run_now": scheduleRunNow}).Info("スケジュール実行を開始します")
		s.Run(ctx, scheduleRunNow)
		logger.Log.Info("スケジュール実行を停止しました")
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "実行間隔 (cron 書式)。省略時は設定ファイルの cron")
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "開始直後に1回実行する")
}
