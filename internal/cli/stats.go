package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-math-translator/pkg/providers/stats"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var resetStats bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "查看各提供商的请求统计和占位符保持率",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.StatsFile == "" {
				return fmt.Errorf("未配置统计文件 (stats_file)")
			}

			if resetStats {
				if err := os.Remove(cfg.StatsFile); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("删除统计文件失败: %w", err)
				}
				color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "统计已清空")
				return nil
			}

			manager := stats.NewStatsManager(cfg.StatsFile, nil)
			if err := manager.LoadFromDB(); err != nil {
				return err
			}
			if len(manager.GetAllStats()) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "暂无统计数据")
				return nil
			}
			manager.RenderTable(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&resetStats, "reset", false, "清空统计数据")
	return cmd
}
