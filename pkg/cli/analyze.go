package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ansas/internal/app"
	"ansas/internal/model"
	"ansas/internal/utils"
)

func analyzeCommand(opts *options) *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze <scan.xml>",
		Short: "Analyze an nmap XML report",
		Long: `Examples:
  # analyze a report and print a table
  $ ansas analyze scan.xml

  # read the report from stdin and write JSON
  $ nmap -sV -oX - 10.0.0.0/24 | ansas analyze - -f json

  # save the result for later review
  $ ansas analyze scan.xml --save -u alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args[0])
		},
	}

	analyzeCmd.Flags().StringVarP(&opts.output, "output", "o", "", "输出文件 (默认输出到终端)")
	analyzeCmd.Flags().BoolVar(&opts.save, "save", false, "保存结果到配置的存储")

	return analyzeCmd
}

func runAnalyze(cmd *cobra.Command, opts *options, path string) error {
	logger := utils.NewLogger("cli")

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := app.New(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var result *model.EnrichedResult
	if path == "-" {
		result, err = a.Orchestrator.Run(ctx, cmd.InOrStdin())
	} else {
		logger.Info("开始分析: %s", path)
		result, err = a.Orchestrator.RunFile(ctx, path)
	}
	if err != nil {
		return err
	}

	result.Owner = opts.owner
	if path != "-" {
		result.Filename = filepath.Base(path)
	} else {
		result.Filename = "stdin"
	}

	if opts.save {
		st, err := a.OpenStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("未配置存储 (store.driver=none)，无法保存结果")
		}
		id, err := st.Save(ctx, result)
		if err != nil {
			return err
		}
		logger.Info("结果已保存: %s", id)
	}

	return NewOutputFormatter(opts.format).PrintResult(cmd.OutOrStdout(), result, opts.output)
}
