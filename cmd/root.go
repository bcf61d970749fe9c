package cmd

import (
	"fmt"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/martinsmeder/AI-agent-test/internal/config"
	"github.com/martinsmeder/AI-agent-test/internal/logger"
	"github.com/martinsmeder/AI-agent-test/internal/pipeline"
	"github.com/martinsmeder/AI-agent-test/pkg/client"
)

// --- グローバル定数 ---

const (
	appName = "harvest"

	// todayLayout は --today フラグの書式です。
	todayLayout = "2006-01-02"
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	SettingsPath      string // --settings YAML設定ファイル
	TimeoutSec        int    // --timeout タイムアウト
	MaxRetries        int    // --max-retries リトライ回数
	OutputDir         string // --output 出力先ディレクトリ
	Today             string // --today 期間の基準日 (YYYY-MM-DD)
	ItemConcurrency   int    // --concurrency 記事ページ取得の同時実行数
	SourceConcurrency int    // --source-concurrency 取得元の同時実行数
	StrictItemFetch   bool   // --strict-item-fetch 記事ページの取得失敗で取得元を失敗させる
	MetricsFile       string // --metrics-file メトリクスの書き出し先
}

var Flags AppFlags

var (
	appConfig     *config.Config
	globalFetcher *client.Client
	today         time.Time
)

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	defaults := config.Default()

	rootCmd.PersistentFlags().StringVar(&Flags.SettingsPath, "settings", "", "YAML設定ファイルのパス")
	rootCmd.PersistentFlags().IntVar(&Flags.TimeoutSec, "timeout", defaults.TimeoutSec, "HTTPリクエストのタイムアウト時間（秒）")
	rootCmd.PersistentFlags().IntVar(&Flags.MaxRetries, "max-retries", int(defaults.MaxRetries), "HTTPリクエストのリトライ最大回数")
	rootCmd.PersistentFlags().StringVar(&Flags.OutputDir, "output", defaults.OutputDir, "出力先ディレクトリ")
	rootCmd.PersistentFlags().StringVar(&Flags.Today, "today", "", "期間の基準日 (YYYY-MM-DD)。省略時は現在日時")
	rootCmd.PersistentFlags().IntVar(&Flags.ItemConcurrency, "concurrency", defaults.ItemConcurrency, "記事ページ取得の最大同時実行数")
	rootCmd.PersistentFlags().IntVar(&Flags.SourceConcurrency, "source-concurrency", defaults.SourceConcurrency, "取得元の最大同時実行数")
	rootCmd.PersistentFlags().BoolVar(&Flags.StrictItemFetch, "strict-item-fetch", false, "記事ページの取得に1件でも失敗した取得元を失敗扱いにする")
	rootCmd.PersistentFlags().StringVar(&Flags.MetricsFile, "metrics-file", "", "Prometheusテキスト形式のメトリクスの書き出し先")
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	logger.Init(clibase.Flags.Verbose)

	// 1. 設定ファイルの読み込みとフラグによる上書き
	cfg, err := config.Load(Flags.SettingsPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定の検証に失敗しました: %w", err)
	}

	// 2. 基準日の決定
	t, err := parseToday(Flags.Today)
	if err != nil {
		return err
	}

	logger.Log.Debugf("HTTPクライアントのタイムアウトを設定しました (Timeout: %s)。", cfg.Timeout())
	logger.Log.Debugf("HTTPクライアントのリトライ回数を設定しました (MaxRetries: %d)。", cfg.MaxRetries)

	// 3. 共有フェッチャーの初期化
	appConfig = cfg
	today = t
	globalFetcher = client.New(cfg.Timeout(), client.WithMaxRetries(cfg.MaxRetries))
	return nil
}

// applyFlagOverrides は、明示的に指定されたフラグだけで設定値を上書きします。
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.TimeoutSec = Flags.TimeoutSec
	}
	if flags.Changed("max-retries") && Flags.MaxRetries >= 0 {
		cfg.MaxRetries = uint64(Flags.MaxRetries)
	}
	if flags.Changed("output") {
		cfg.OutputDir = Flags.OutputDir
	}
	if flags.Changed("concurrency") {
		cfg.ItemConcurrency = Flags.ItemConcurrency
	}
	if flags.Changed("source-concurrency") {
		cfg.SourceConcurrency = Flags.SourceConcurrency
	}
	if flags.Changed("strict-item-fetch") {
		cfg.StrictItemFetch = Flags.StrictItemFetch
	}
}

// parseToday は --today の値を解釈します。空の場合はゼロ値 (実行時の現在日時) を返します。
func parseToday(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(todayLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--today は YYYY-MM-DD 形式で指定してください: %s", raw)
	}
	return t, nil
}

// newRunner は、初期化済みの設定とフェッチャーからパイプラインを組み立てます。
func newRunner(perSource bool) (*pipeline.Runner, error) {
	return pipeline.New(pipeline.Settings{
		Config:      appConfig,
		Fetcher:     globalFetcher,
		Today:       today,
		PerSource:   perSource,
		MetricsFile: Flags.MetricsFile,
	})
}

// --- エントリポイント ---

// Execute は、ルートコマンドを実行するメイン関数です。clibaseのExecuteを使用する。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		runCmd,
		sourceCmd,
		listCmd,
		scheduleCmd,
		extractCmd,
	)
	// clibase.Execute() の中で os.Exit(1) が処理されるため、ここでは不要
}
