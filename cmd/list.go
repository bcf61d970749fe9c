package cmd

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/martinsmeder/AI-agent-test/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "取得元の一覧と、設定を反映した一覧URL・期間を表示します",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		printSources(cmd.OutOrStdout(), appConfig)
		return nil
	},
}

// printSources は、取得元ごとの設定を表形式で表示します。
func printSources(w io.Writer, cfg *config.Config) {
	header := []string{"NAME", "ENABLED", "WINDOW", "MODE", "STRATEGY", "LISTING URL"}
	widths := []int{nameColumnWidth, 8, 8, 10, 22, 0}

	printRow(w, widths, header)
	for _, spec := range cfg.Specs() {
		enabled := "yes"
		if !cfg.IsEnabled(spec.Name) {
			enabled = "no"
		}
		window := "-"
		if spec.WindowDays > 0 {
			window = fmt.Sprintf("%dd", spec.WindowDays)
		}
		printRow(w, widths, []string{spec.Name, enabled, window, spec.Mode.String(), spec.Strategy, spec.ListingURL})
	}
}

func printRow(w io.Writer, widths []int, cols []string) {
	for i, col := range cols {
		if widths[i] > 0 {
			col = runewidth.FillRight(runewidth.Truncate(col, widths[i]-1, ""), widths[i])
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprintln(w)
}
