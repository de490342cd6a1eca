package cli

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/spf13/cobra"
)

var (
	showWidth        int
	showSegment      string
	showUntranslated bool
)

// NewShowCommand 创建 show 命令
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [flags] <bundle.zip>",
		Short: "以表格显示工程包中的句子",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowCommand,
	}
	cmd.Flags().IntVarP(&showWidth, "width", "w", 40, "每列最大显示宽度，0 表示不截断")
	cmd.Flags().StringVar(&showSegment, "segment", "", "只显示指定段落")
	cmd.Flags().BoolVar(&showUntranslated, "untranslated", false, "只显示尚未翻译的句子")
	return cmd
}

func runShowCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.session.Import(args[0]); err != nil {
		return err
	}
	renderDocument(cmd.OutOrStdout(), a.session.Document(), renderOptions{
		width:        showWidth,
		segment:      showSegment,
		untranslated: showUntranslated,
		highlight:    a.session.Highlight(),
	})
	return nil
}

type renderOptions struct {
	width        int
	segment      string
	untranslated bool
	highlight    bool
	pending      func(segmentID, sentenceID string, side document.Side) string
}

// renderDocument 输出句子表格。highlight 开启时修改过的译文以黄色显示。
func renderDocument(w io.Writer, doc *document.Document, opts renderOptions) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"段落", "句子", "原文", "译文", "状态"})

	modified := color.New(color.FgYellow)
	processing := color.New(color.FgCyan)

	rows := 0
	for _, seg := range doc.Segments {
		if opts.segment != "" && seg.ID != opts.segment {
			continue
		}
		for _, s := range seg.Sentences {
			original, translated := s.Original, s.Translated
			if opts.pending != nil {
				original = opts.pending(seg.ID, s.ID, document.SideOriginal)
				translated = opts.pending(seg.ID, s.ID, document.SideTranslated)
			}
			if opts.untranslated && strings.TrimSpace(translated) != "" {
				continue
			}

			translated = truncate(translated, opts.width)
			if opts.highlight && s.IsModified {
				translated = modified.Sprint(translated)
			}

			var status []string
			if seg.IsInitialLoading {
				status = append(status, processing.Sprint("翻译中"))
			}
			if s.IsProcessing {
				status = append(status, processing.Sprint("同步中"))
			}
			if s.IsModified {
				status = append(status, modified.Sprint("已修改"))
			}

			t.AppendRow(table.Row{seg.ID, s.ID, truncate(original, opts.width), translated, strings.Join(status, " ")})
			rows++
		}
		t.AppendSeparator()
	}
	t.AppendFooter(table.Row{"", "", "", "共", rows})
	t.Render()
}

// truncate 按显示宽度截断，width <= 0 时不截断
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
