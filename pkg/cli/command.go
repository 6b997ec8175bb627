package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ansas/internal/config"
	"ansas/internal/utils"
)

const versions = `ANSAS - 网络资产安全分析工具
Version: 1.0.0
NVD API: CVE 2.0`

// options 命令行参数，所有子命令共享
type options struct {
	configFile string
	debug      bool
	owner      string
	format     string
	output     string
	save       bool

	cfg *config.Config
}

func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand 构建完整的命令树
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "ansas [OPTIONS]",
		Short: "Nmap scan analysis, CVE enrichment and compliance evaluation",
		Long: `ANSAS 解析nmap XML扫描报告，从NVD查询每个服务的已知漏洞，
附加修复建议并按数据保护条款评估合规状态。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "配置文件路径 (默认 ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "输出调试日志")
	rootCmd.PersistentFlags().StringVarP(&opts.owner, "owner", "u", defaultOwner(), "扫描记录所属用户")
	rootCmd.PersistentFlags().StringVarP(&opts.format, "format", "f", FormatText, "输出格式 (text, json, csv)")

	rootCmd.AddCommand(analyzeCommand(opts))
	rootCmd.AddCommand(historyCommand(opts))
	rootCmd.AddCommand(showCommand(opts))
	rootCmd.AddCommand(cacheCommand(opts))
	rootCmd.AddCommand(versionCommand())

	return rootCmd
}

func (o *options) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	if !ValidFormat(o.format) {
		return fmt.Errorf("不支持的输出格式: %s", o.format)
	}

	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	o.cfg = cfg

	level := cfg.Log.Level
	if o.debug {
		level = "debug"
	}
	utils.ConfigureLogging(level, cfg.Log.Format)
	// 日志写到 stderr，stdout 只输出报告
	utils.SetOutput(cmd.ErrOrStderr())

	return nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information and quit",
		Args:  NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versions)
		},
	}
}

// NoArgs 子命令不接受参数
func NoArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	return fmt.Errorf("%q accepts no argument(s).\nSee '%s --help'.\n\nUsage:  %s",
		cmd.CommandPath(), cmd.CommandPath(), cmd.UseLine())
}

// signalContext Ctrl+C 时取消正在进行的查询
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func defaultOwner() string {
	if u := strings.TrimSpace(os.Getenv("USER")); u != "" {
		return u
	}
	return "local"
}
