package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/project"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/stats"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/translator"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shellHelp = `命令:
  show [段落]                       显示句子（含未提交的编辑）
  stats                             显示统计
  edit <段落> <句子> o|t <文本>     编辑原文(o)或译文(t)
  translate <段落> <句子>           用当前风格翻译单句
  all                               后台批量翻译整个文档
  cancel                            停止批量翻译
  undo                              撤销
  insert <段落> <句子>              在句子后插入空句子
  delete <段落> <句子>              删除句子
  merge <段落> <句子>               与下一句合并
  addpara <段落>                    在段落后插入新段落
  delpara <段落>                    删除段落（需要确认）
  style [名称]                      查看或切换风格
  autosync on|off                   开关自动同步
  highlight on|off                  开关修改高亮
  flush                             立即提交缓冲编辑
  save [文件]                       保存工程包
  quit                              退出（有未保存修改时使用 quit! 放弃修改）`

var errQuit = errors.New("quit")

// NewShellCommand 创建 shell 命令
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [bundle.zip|input.txt]",
		Short: "交互式编辑工程",
		Long:  "进入交互式编辑。可以打开工程包，也可以直接读取纯文本创建新工程。\n\n" + shellHelp,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShellCommand,
	}
}

// shell 交互会话
type shell struct {
	a    *app
	in   *bufio.Scanner
	out  io.Writer
	path string

	bulkWG  sync.WaitGroup
	printMu sync.Mutex
}

func runShellCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	sh := &shell{
		a:   a,
		in:  bufio.NewScanner(cmd.InOrStdin()),
		out: cmd.OutOrStdout(),
	}
	if len(args) == 1 {
		if err := sh.open(args[0]); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if a.session.CancelTranslation() {
				sh.println(color.YellowString("正在停止批量翻译…"))
			}
		}
	}()

	sh.println(color.CyanString("输入 help 查看命令"))
	for {
		sh.prompt()
		if !sh.in.Scan() {
			break
		}
		line := strings.TrimSpace(sh.in.Text())
		if line == "" {
			continue
		}
		if err := sh.exec(cmd.Context(), line); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			sh.println(color.RedString("错误: %v", err))
		}
	}

	sh.bulkWG.Wait()
	a.session.Flush()
	return sh.in.Err()
}

// open 打开工程包或纯文本
func (sh *shell) open(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		if err := sh.a.session.Import(path); err != nil {
			return err
		}
		sh.path = path
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取输入文件失败: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	doc, err := document.FromText(string(content))
	if err != nil {
		return err
	}
	sh.a.session.Load(doc, project.NewOriginalFile(filepath.Base(path), mimeTypeOf(path), info.ModTime(), content))
	return nil
}

// title 返回统计标题：工程包路径或原始文件名
func (sh *shell) title() string {
	if sh.path != "" {
		return filepath.Base(sh.path)
	}
	if f := sh.a.session.OriginalFile(); f != nil {
		return f.Name
	}
	return "-"
}

func (sh *shell) prompt() {
	sh.printMu.Lock()
	defer sh.printMu.Unlock()
	fmt.Fprint(sh.out, "syncer> ")
}

func (sh *shell) println(a ...interface{}) {
	sh.printMu.Lock()
	defer sh.printMu.Unlock()
	fmt.Fprintln(sh.out, a...)
}

// exec 执行一行命令
func (sh *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	s := sh.a.session

	switch name {
	case "help", "?":
		sh.println(shellHelp)
	case "show":
		opts := renderOptions{width: 40, highlight: s.Highlight(), pending: s.PendingText}
		if len(args) > 0 {
			opts.segment = args[0]
		}
		sh.printMu.Lock()
		renderDocument(sh.out, s.Document(), opts)
		sh.printMu.Unlock()
	case "stats":
		sh.printMu.Lock()
		stats.NewVisualizer(sh.out).ShowOverview(sh.title(), stats.Compute(s.Document()))
		sh.printMu.Unlock()
	case "edit":
		if len(args) < 3 {
			return fmt.Errorf("用法: edit <段落> <句子> o|t <文本>")
		}
		side, err := parseSide(args[2])
		if err != nil {
			return err
		}
		text := restOfLine(line, 4)
		return s.Edit(args[0], args[1], side, text)
	case "translate":
		if len(args) != 2 {
			return fmt.Errorf("用法: translate <段落> <句子>")
		}
		return s.TranslateSentence(args[0], args[1])
	case "all":
		return sh.translateAll(ctx)
	case "cancel":
		if !s.CancelTranslation() {
			sh.println("没有进行中的批量翻译")
		}
	case "undo":
		if !s.Undo() {
			sh.println("没有可撤销的操作")
			return nil
		}
		sh.println(fmt.Sprintf("已撤销，还可撤销 %d 步", s.HistoryDepth()))
	case "insert":
		if len(args) != 2 {
			return fmt.Errorf("用法: insert <段落> <句子>")
		}
		id, err := s.InsertSentenceAfter(args[0], args[1])
		if err != nil {
			return err
		}
		sh.println("新句子:", id)
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("用法: delete <段落> <句子>")
		}
		return s.DeleteSentence(args[0], args[1])
	case "merge":
		if len(args) != 2 {
			return fmt.Errorf("用法: merge <段落> <句子>")
		}
		return s.MergeWithNext(args[0], args[1])
	case "addpara":
		if len(args) != 1 {
			return fmt.Errorf("用法: addpara <段落>")
		}
		id, err := s.InsertSegmentAfter(args[0])
		if err != nil {
			return err
		}
		sh.println("新段落:", id)
	case "delpara":
		if len(args) != 1 {
			return fmt.Errorf("用法: delpara <段落>")
		}
		return s.DeleteSegment(args[0], sh.confirmDelete)
	case "style":
		return sh.style(args)
	case "autosync":
		on, err := parseSwitch(args)
		if err != nil {
			return err
		}
		s.SetAutoSync(on)
	case "highlight":
		on, err := parseSwitch(args)
		if err != nil {
			return err
		}
		s.SetHighlight(on)
	case "flush":
		s.Flush()
	case "save":
		return sh.save(args)
	case "quit", "exit":
		s.Flush()
		if s.Dirty() {
			sh.println(color.YellowString("有未保存的修改，使用 save 保存或 quit! 放弃修改"))
			return nil
		}
		return errQuit
	case "quit!":
		return errQuit
	default:
		return fmt.Errorf("未知命令 %q，输入 help 查看命令", name)
	}
	return nil
}

// translateAll 在后台运行批量翻译
func (sh *shell) translateAll(ctx context.Context) error {
	s := sh.a.session
	if s.Translating() {
		return fmt.Errorf("批量翻译已在进行")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	total := s.Document().Len()
	sh.println(color.CyanString("开始批量翻译 %d 段，使用 cancel 停止", total))

	sh.bulkWG.Add(1)
	go func() {
		defer sh.bulkWG.Done()
		result, err := s.TranslateAll(ctx, func(id string, o translator.Outcome) {
			if o == translator.OutcomeFailed {
				sh.println(color.RedString("段落 %s 翻译失败", id))
			}
		})
		if err != nil {
			sh.println(color.RedString("批量翻译失败: %v", err))
			return
		}
		sh.a.log.Debug("shell bulk translation finished", zap.Duration("duration", result.Duration))
		if result.Cancelled {
			sh.println(color.YellowString("批量翻译已取消，%d/%d 段已翻译", result.Applied, total))
			return
		}
		sh.println(color.GreenString("批量翻译完成，%d 段成功，%d 段失败", result.Applied, result.Failed))
	}()
	return nil
}

// confirmDelete 读取下一行作为确认
func (sh *shell) confirmDelete(seg document.Segment) bool {
	preview := ""
	if len(seg.Sentences) > 0 {
		preview = truncate(seg.Sentences[0].Original, 30)
	}
	sh.printMu.Lock()
	fmt.Fprintf(sh.out, "删除段落 %s（%d 句，%q）？(y/N): ", seg.ID, len(seg.Sentences), preview)
	sh.printMu.Unlock()
	if !sh.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sh.in.Text()))
	return answer == "y" || answer == "yes"
}

func (sh *shell) style(args []string) error {
	s := sh.a.session
	if len(args) == 0 {
		active := s.ActiveStyle()
		for _, st := range s.Styles() {
			marker := "  "
			if st.ID == active.ID {
				marker = color.GreenString("* ")
			}
			sh.println(marker + st.ID + "  " + st.Name)
		}
		return nil
	}
	st, err := resolveStyle(s.Styles(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := s.SetActiveStyle(st.ID); err != nil {
		return err
	}
	sh.println("当前风格:", st.ID)
	return nil
}

func (sh *shell) save(args []string) error {
	path := sh.path
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = project.DefaultBundleName(time.Now())
	}
	if err := sh.a.session.Export(path); err != nil {
		return err
	}
	sh.path = path
	sh.println(color.GreenString("✅ 已保存到 %s", path))
	return nil
}

func parseSide(s string) (document.Side, error) {
	switch strings.ToLower(s) {
	case "o", "orig", "original":
		return document.SideOriginal, nil
	case "t", "trans", "translated":
		return document.SideTranslated, nil
	}
	return "", fmt.Errorf("未知字段 %q，应为 o 或 t", s)
}

func parseSwitch(args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("用法: on|off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("无效的开关值 %q", args[0])
}

// restOfLine 返回跳过前 n 个字段后的原始文本
func restOfLine(line string, n int) string {
	rest := strings.TrimSpace(line)
	for i := 0; i < n; i++ {
		idx := strings.IndexFunc(rest, func(r rune) bool { return r == ' ' || r == '\t' })
		if idx < 0 {
			return ""
		}
		rest = strings.TrimLeft(rest[idx:], " \t")
	}
	return rest
}
