package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/project"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var newOutput string

// NewNewCommand 创建 new 命令
func NewNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new [flags] <input.txt|input.md>",
		Short: "从纯文本创建工程包",
		Long: `读取纯文本或 Markdown 文件，按空行切分段落、按句末标点切分句子，
生成一个尚未翻译的工程包。原始文件会一并保存在工程包中。`,
		Args: cobra.ExactArgs(1),
		RunE: runNewCommand,
	}
	cmd.Flags().StringVarP(&newOutput, "output", "o", "", "工程包路径（默认按日期命名）")
	return cmd
}

func runNewCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	input := args[0]
	content, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("读取输入文件失败: %w", err)
	}
	info, err := os.Stat(input)
	if err != nil {
		return err
	}

	doc, err := document.FromText(string(content))
	if err != nil {
		return fmt.Errorf("解析输入文件失败: %w", err)
	}
	if doc.Len() == 0 {
		return fmt.Errorf("输入文件 %s 没有可用的文本", input)
	}

	original := project.NewOriginalFile(filepath.Base(input), mimeTypeOf(input), info.ModTime(), content)
	a.session.Load(doc, original)

	output := newOutput
	if output == "" {
		output = project.DefaultBundleName(time.Now())
	}
	if err := a.session.Export(output); err != nil {
		return fmt.Errorf("写入工程包失败: %w", err)
	}

	a.log.Info("工程包已创建",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("segments", doc.Len()),
		zap.Int("sentences", doc.SentenceCount()))
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d 段, %d 句)\n",
		color.GreenString("✅ 已创建"), output, doc.Len(), doc.SentenceCount())
	return nil
}

// mimeTypeOf 根据扩展名推断 MIME 类型
func mimeTypeOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "text/plain"
}
