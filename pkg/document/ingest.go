package document

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

var (
	paragraphBreak = regexp2.MustCompile(`\n\s*\n+`, regexp2.None)
	// 句末标点之后的空白处断句，标点留在前一句
	sentenceBreak = regexp2.MustCompile(`(?<=[.?!])\s+`, regexp2.None)
)

// FromText 将纯文本切分为段落和句子。
// 段落以空行分隔，句子在 . ? ! 之后的空白处切分，空内容被丢弃。
func FromText(text string) (*Document, error) {
	text = norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))

	paragraphs, err := split(paragraphBreak, text)
	if err != nil {
		return nil, fmt.Errorf("split paragraphs: %w", err)
	}

	doc := &Document{}
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		parts, err := split(sentenceBreak, para)
		if err != nil {
			return nil, fmt.Errorf("split sentences: %w", err)
		}
		i := len(doc.Segments)
		seg := Segment{ID: fmt.Sprintf("p-%d", i)}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			seg.Sentences = append(seg.Sentences, Sentence{
				ID:       fmt.Sprintf("s-%d-%d", i, len(seg.Sentences)),
				Original: part,
			})
		}
		if len(seg.Sentences) > 0 {
			doc.Segments = append(doc.Segments, seg)
		}
	}
	return doc, nil
}

// split 按正则匹配位置切分字符串
func split(re *regexp2.Regexp, s string) ([]string, error) {
	var parts []string
	runes := []rune(s)
	start := 0
	m, err := re.FindStringMatch(s)
	for m != nil && err == nil {
		parts = append(parts, string(runes[start:m.Index]))
		start = m.Index + m.Length
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, err
	}
	return append(parts, string(runes[start:])), nil
}
