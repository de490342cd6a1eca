package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
)

// DocumentStats 文档统计
type DocumentStats struct {
	Segments           int
	Sentences          int
	Translated         int
	Untranslated       int
	Modified           int
	Processing         int
	OriginalChars      int64
	TranslatedChars    int64
	LongestSentenceLen int
}

// Coverage 返回已翻译句子的比例
func (s DocumentStats) Coverage() float64 {
	if s.Sentences == 0 {
		return 0
	}
	return float64(s.Translated) / float64(s.Sentences) * 100
}

// Compute 统计文档
func Compute(doc *document.Document) DocumentStats {
	var st DocumentStats
	if doc == nil {
		return st
	}
	st.Segments = doc.Len()
	for _, seg := range doc.Segments {
		for _, s := range seg.Sentences {
			st.Sentences++
			if strings.TrimSpace(s.Translated) != "" {
				st.Translated++
			} else {
				st.Untranslated++
			}
			if s.IsModified {
				st.Modified++
			}
			if s.IsProcessing {
				st.Processing++
			}
			n := utf8.RuneCountInString(s.Original)
			st.OriginalChars += int64(n)
			st.TranslatedChars += int64(utf8.RuneCountInString(s.Translated))
			if n > st.LongestSentenceLen {
				st.LongestSentenceLen = n
			}
		}
	}
	return st
}

// Visualizer 统计数据可视化器
type Visualizer struct {
	out io.Writer
}

// NewVisualizer 创建可视化器
func NewVisualizer(out io.Writer) *Visualizer {
	return &Visualizer{out: out}
}

// ShowOverview 显示总览
func (v *Visualizer) ShowOverview(name string, st DocumentStats) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(v.out, "📊 %s\n", name)
	title.Fprintln(v.out, strings.Repeat("=", 50))

	fmt.Fprintln(v.out)
	v.printSection("🎯 Structure", [][]string{
		{"Segments", formatNumber(int64(st.Segments))},
		{"Sentences", formatNumber(int64(st.Sentences))},
		{"Longest Sentence", formatNumber(int64(st.LongestSentenceLen)) + " chars"},
	})

	fmt.Fprintln(v.out)
	v.printSection("🔄 Translation", [][]string{
		{"Translated", formatNumber(int64(st.Translated))},
		{"Untranslated", formatNumber(int64(st.Untranslated))},
		{"Modified", formatNumber(int64(st.Modified))},
		{"Processing", formatNumber(int64(st.Processing))},
		{"Original Chars", formatNumber(st.OriginalChars)},
		{"Translated Chars", formatNumber(st.TranslatedChars)},
	})

	fmt.Fprintln(v.out)
	v.ShowCoverageBar(st)
}

// ShowCoverageBar 显示翻译覆盖率条
func (v *Visualizer) ShowCoverageBar(st DocumentStats) {
	if st.Sentences == 0 {
		return
	}

	percentage := st.Coverage()
	barWidth := 40
	filledWidth := int(float64(barWidth) * float64(st.Translated) / float64(st.Sentences))

	bar := strings.Repeat("█", filledWidth) + strings.Repeat("░", barWidth-filledWidth)

	progressColor := color.New(color.FgGreen)
	if percentage < 50 {
		progressColor = color.New(color.FgYellow)
	}
	if percentage < 25 {
		progressColor = color.New(color.FgRed)
	}

	fmt.Fprint(v.out, "Coverage [")
	progressColor.Fprint(v.out, bar)
	fmt.Fprintf(v.out, "] %.1f%% (%d/%d)\n", percentage, st.Translated, st.Sentences)
}

// printSection 打印一个统计部分
func (v *Visualizer) printSection(title string, data [][]string) {
	sectionColor := color.New(color.FgYellow, color.Bold)
	sectionColor.Fprintf(v.out, "%s\n", title)

	maxLabelLen := 0
	for _, row := range data {
		if len(row[0]) > maxLabelLen {
			maxLabelLen = len(row[0])
		}
	}

	labelColor := color.New(color.FgCyan)
	valueColor := color.New(color.FgWhite, color.Bold)
	for _, row := range data {
		labelColor.Fprintf(v.out, "  %-*s: ", maxLabelLen, row[0])
		valueColor.Fprintln(v.out, row[1])
	}
}

// formatNumber 格式化数字（添加千位分隔符）
func formatNumber(n int64) string {
	str := strconv.FormatInt(n, 10)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(char)
	}
	return result.String()
}
