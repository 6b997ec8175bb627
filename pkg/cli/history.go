package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ansas/internal/app"
	"ansas/internal/store"
)

func historyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List saved analyses, newest first",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, st, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := st.List(cmd.Context(), opts.owner)
			if err != nil {
				return err
			}
			return NewOutputFormatter(opts.format).PrintHistory(cmd.OutOrStdout(), records)
		},
	}
}

func showCommand(opts *options) *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Print a saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, st, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := st.Get(cmd.Context(), opts.owner, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("扫描记录不存在: %s", args[0])
			}
			if err != nil {
				return err
			}
			return NewOutputFormatter(opts.format).PrintResult(cmd.OutOrStdout(), result, opts.output)
		},
	}

	showCmd.Flags().StringVarP(&opts.output, "output", "o", "", "输出文件 (默认输出到终端)")
	return showCmd
}

// openStore 历史记录相关命令必须配置存储
func openStore(cmd *cobra.Command, opts *options) (*app.App, store.Store, error) {
	a := app.NewBare(opts.cfg)
	st, err := a.OpenStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	if st == nil {
		return nil, nil, fmt.Errorf("未配置存储 (store.driver=none)")
	}
	return a, st, nil
}
