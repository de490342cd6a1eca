package cli

import (
	"fmt"

	"github.com/nerdneilsfield/go-bilingual-sync/internal/config"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/editor"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// 命令行标志变量
	cfgFile   string
	debugMode bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "syncer",
		Short: "双语文档同步与翻译工具",
		Long: `双语文档同步工具按句对齐原文与译文，由大语言模型补全和更新译文。

修改译文时自动回写原文，修改原文时自动更新译文；
支持整篇批量翻译、撤销、句子与段落的拆分合并，以及工程包导入导出。

用法示例：
  syncer new essay.txt -o essay.zip      # 从文本创建工程包
  syncer translate essay.zip             # 批量翻译整个文档
  syncer show essay.zip                  # 以表格查看句子
  syncer shell essay.zip                 # 进入交互编辑
  syncer settings --base-url https://api.example.com/v1 --api-key sk-xxx`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试模式")

	rootCmd.AddCommand(NewNewCommand())
	rootCmd.AddCommand(NewTranslateCommand())
	rootCmd.AddCommand(NewShowCommand())
	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewShellCommand())
	rootCmd.AddCommand(NewSettingsCommand())
	rootCmd.AddCommand(NewStylesCommand())
	rootCmd.AddCommand(NewTestCommand())

	return rootCmd
}

// loadConfig 加载配置，命令行的 --debug 覆盖配置文件
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if debugMode {
		cfg.Debug = true
	}
	return cfg, nil
}

// app 是一次命令执行所需的配置、日志和会话
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	session *editor.Session
}

// newApp 加载配置并创建编辑会话
func newApp(console bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var log *zap.Logger
	if console {
		log = logger.NewConsoleLogger(cfg.Debug)
	} else {
		log = logger.NewLogger(cfg.Debug)
	}

	session, err := editor.New(cfg,
		editor.WithSettingsStore(config.NewSettingsStore(cfg.SettingsDir, log)),
		editor.WithLogger(log))
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("创建编辑会话失败: %w", err)
	}
	return &app{cfg: cfg, log: log, session: session}, nil
}

// close 等待后台请求并刷新日志
func (a *app) close() {
	a.session.Wait()
	_ = a.log.Sync()
}
