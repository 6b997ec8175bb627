package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ansas/internal/config"
	"ansas/internal/cvedb"
	"ansas/internal/utils"
)

func cacheCommand(opts *options) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persistent CVE cache",
		Args:  NoArgs,
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print the number of cached CVE records",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openCVEDatabase(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			count, err := db.GetCveCount()
			if err != nil {
				return fmt.Errorf("读取CVE缓存失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "CVE缓存: %s\n已缓存CVE: %d\n", opts.cfg.Cache.Path, count)
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete all cached lookup results",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openCVEDatabase(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			logger := utils.NewLogger("cli").WithField("cache", opts.cfg.Cache.Path)
			if err := db.Purge(cmd.Context()); err != nil {
				logger.Error("清空CVE缓存失败: %v", err)
				return err
			}
			logger.Debug("CVE缓存已清空")
			fmt.Fprintln(cmd.OutOrStdout(), "CVE缓存已清空")
			return nil
		},
	})

	return cacheCmd
}

// openCVEDatabase 只有 sqlite 缓存会落盘
func openCVEDatabase(opts *options) (*cvedb.CVEDatabase, error) {
	cfg := opts.cfg.Cache
	if cfg.Driver != config.CacheSQLite {
		return nil, fmt.Errorf("当前缓存驱动 %q 没有持久化缓存 (需要 cache.driver=sqlite)", cfg.Driver)
	}
	return cvedb.NewCVEDatabase(cfg.Path, cfg.TTL)
}
