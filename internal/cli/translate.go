package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/progress"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	translateOutput     string
	translateStyle      string
	translateNoProgress bool
)

// NewTranslateCommand 创建 translate 命令
func NewTranslateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [flags] <bundle.zip>",
		Short: "批量翻译工程包中的全部段落",
		Long: `逐段发送批量翻译请求，最多同时进行 concurrency 个请求。
按 Ctrl+C 停止：不再发出新请求，已发出请求的结果会被丢弃。`,
		Args: cobra.ExactArgs(1),
		RunE: runTranslateCommand,
	}
	cmd.Flags().StringVarP(&translateOutput, "output", "o", "", "输出工程包路径（默认覆盖输入）")
	cmd.Flags().StringVar(&translateStyle, "style", "", "使用的风格（支持模糊匹配）")
	cmd.Flags().BoolVar(&translateNoProgress, "no-progress", false, "不显示进度条")
	return cmd
}

func runTranslateCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	input := args[0]
	if err := a.session.Import(input); err != nil {
		return err
	}
	if translateStyle != "" {
		st, err := resolveStyle(a.session.Styles(), translateStyle)
		if err != nil {
			return err
		}
		if err := a.session.SetActiveStyle(st.ID); err != nil {
			return err
		}
	}

	// Ctrl+C 只设置取消标记，等待进行中的请求自然结束
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-sigCh:
			a.log.Warn("收到中断信号，停止批量翻译")
			a.session.CancelTranslation()
		case <-stop:
		}
	}()

	doc := a.session.Document()
	reporter := progress.NewReporter(doc.Len(), cmd.ErrOrStderr(), a.log)
	if !translateNoProgress {
		reporter.Start()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := a.session.TranslateAll(ctx, reporter.Observe)
	if err != nil {
		reporter.Finish(true)
		return err
	}
	reporter.Finish(result.Cancelled)

	output := translateOutput
	if output == "" {
		output = input
	}
	if err := a.session.Export(output); err != nil {
		return fmt.Errorf("保存工程包失败: %w", err)
	}

	a.log.Info("批量翻译完成",
		zap.String("output", output),
		zap.Int("applied", result.Applied),
		zap.Int("failed", result.Failed),
		zap.Int("discarded", result.Discarded),
		zap.Bool("cancelled", result.Cancelled),
		zap.Duration("duration", result.Duration))

	out := cmd.OutOrStdout()
	switch {
	case result.Cancelled:
		fmt.Fprintf(out, "%s %d/%d 段已翻译，已保存到 %s\n",
			color.YellowString("⚠ 已取消"), result.Applied, result.Total, output)
	case result.Failed > 0:
		fmt.Fprintf(out, "%s %d 段失败，%d 段已翻译，已保存到 %s\n",
			color.RedString("✗ 部分失败"), result.Failed, result.Applied, output)
	default:
		fmt.Fprintf(out, "%s %d 段已翻译，已保存到 %s\n",
			color.GreenString("✅ 完成"), result.Applied, output)
	}
	return nil
}
