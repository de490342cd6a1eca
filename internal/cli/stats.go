package cli

import (
	"path/filepath"

	"github.com/nerdneilsfield/go-bilingual-sync/internal/stats"
	"github.com/spf13/cobra"
)

// NewStatsCommand 创建 stats 命令
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <bundle.zip>",
		Short: "显示工程包的翻译统计",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.session.Import(args[0]); err != nil {
				return err
			}
			st := stats.Compute(a.session.Document())
			stats.NewVisualizer(cmd.OutOrStdout()).ShowOverview(filepath.Base(args[0]), st)
			return nil
		},
	}
}
