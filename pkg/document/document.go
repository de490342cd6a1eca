package document

import (
	"errors"
	"strings"
	"sync/atomic"
)

var (
	// ErrSegmentNotFound 段落不存在
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrSentenceNotFound 句子不存在
	ErrSentenceNotFound = errors.New("sentence not found")
)

// Side 表示句子的原文侧或译文侧
type Side string

const (
	SideOriginal   Side = "original"
	SideTranslated Side = "translated"
)

// Opposite 返回另一侧
func (s Side) Opposite() Side {
	if s == SideOriginal {
		return SideTranslated
	}
	return SideOriginal
}

// Sentence 是对齐的最小单位
type Sentence struct {
	ID           string `json:"id"`
	Original     string `json:"original"`
	Translated   string `json:"translated"`
	IsModified   bool   `json:"isModified"`
	IsProcessing bool   `json:"isProcessing"`
	// Revision 在每次人工编辑提交或发起新请求时更新，用于丢弃过期的异步结果
	Revision uint64 `json:"revision,omitempty"`
}

// Text 返回指定侧的文本
func (s Sentence) Text(side Side) string {
	if side == SideTranslated {
		return s.Translated
	}
	return s.Original
}

// Segment 是一个段落，包含有序的句子
type Segment struct {
	ID               string     `json:"id"`
	Sentences        []Sentence `json:"sentences"`
	IsInitialLoading bool       `json:"isInitialLoading"`
}

// Originals 返回段落中所有句子的原文
func (p Segment) Originals() []string {
	texts := make([]string, len(p.Sentences))
	for i, s := range p.Sentences {
		texts[i] = s.Original
	}
	return texts
}

// Translations 返回段落中所有句子的译文
func (p Segment) Translations() []string {
	texts := make([]string, len(p.Sentences))
	for i, s := range p.Sentences {
		texts[i] = s.Translated
	}
	return texts
}

func (p Segment) sentenceIndex(id string) int {
	for i, s := range p.Sentences {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// clone 复制段落，句子切片不与原段落共享
func (p Segment) clone() Segment {
	out := p
	out.Sentences = make([]Sentence, len(p.Sentences))
	copy(out.Sentences, p.Sentences)
	return out
}

// Document 是有序段落集合。Document 值一旦发布就不再原地修改，
// 写操作返回新的 Document，目标不存在时返回接收者本身。
type Document struct {
	Segments []Segment `json:"segments"`
}

// New 使用给定段落创建文档
func New(segments ...Segment) *Document {
	return &Document{Segments: segments}
}

// Len 返回段落数量
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Segments)
}

// SentenceCount 返回句子总数
func (d *Document) SentenceCount() int {
	n := 0
	for _, p := range d.segments() {
		n += len(p.Sentences)
	}
	return n
}

func (d *Document) segments() []Segment {
	if d == nil {
		return nil
	}
	return d.Segments
}

func (d *Document) segmentIndex(id string) int {
	for i, p := range d.segments() {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Segment 按 id 查找段落
func (d *Document) Segment(id string) (Segment, bool) {
	i := d.segmentIndex(id)
	if i < 0 {
		return Segment{}, false
	}
	return d.Segments[i], true
}

// Sentence 按段落 id 和句子 id 查找句子
func (d *Document) Sentence(segmentID, sentenceID string) (Sentence, bool) {
	p, ok := d.Segment(segmentID)
	if !ok {
		return Sentence{}, false
	}
	i := p.sentenceIndex(sentenceID)
	if i < 0 {
		return Sentence{}, false
	}
	return p.Sentences[i], true
}

// Clone 返回深拷贝，结果与 d 不共享任何可变内存
func (d *Document) Clone() *Document {
	if d == nil {
		return &Document{}
	}
	out := &Document{Segments: make([]Segment, len(d.Segments))}
	for i, p := range d.Segments {
		out.Segments[i] = p.clone()
	}
	return out
}

// withSegments 返回一个新文档，段落切片为新分配
func (d *Document) withSegments(segments []Segment) *Document {
	return &Document{Segments: segments}
}

// UpdateSegment 对指定段落应用 fn，返回新文档。段落不存在时返回 d 本身。
func (d *Document) UpdateSegment(segmentID string, fn func(Segment) Segment) *Document {
	i := d.segmentIndex(segmentID)
	if i < 0 {
		return d
	}
	segments := make([]Segment, len(d.Segments))
	copy(segments, d.Segments)
	segments[i] = fn(d.Segments[i].clone())
	return d.withSegments(segments)
}

// UpdateSentence 对指定句子应用 fn，返回新文档。句子不存在时返回 d 本身。
func (d *Document) UpdateSentence(segmentID, sentenceID string, fn func(Sentence) Sentence) *Document {
	p, ok := d.Segment(segmentID)
	if !ok || p.sentenceIndex(sentenceID) < 0 {
		return d
	}
	return d.UpdateSegment(segmentID, func(p Segment) Segment {
		i := p.sentenceIndex(sentenceID)
		p.Sentences[i] = fn(p.Sentences[i])
		return p
	})
}

// Patch 描述对单个句子的部分字段更新，nil 字段保持不变
type Patch struct {
	Original     *string
	Translated   *string
	IsModified   *bool
	IsProcessing *bool
}

// Apply 将补丁应用到句子上
func (pt Patch) Apply(s Sentence) Sentence {
	if pt.Original != nil {
		s.Original = *pt.Original
	}
	if pt.Translated != nil {
		s.Translated = *pt.Translated
	}
	if pt.IsModified != nil {
		s.IsModified = *pt.IsModified
	}
	if pt.IsProcessing != nil {
		s.IsProcessing = *pt.IsProcessing
	}
	return s
}

// MergeSentence 按 id 合并句子字段，返回新文档
func (d *Document) MergeSentence(segmentID, sentenceID string, patch Patch) *Document {
	return d.UpdateSentence(segmentID, sentenceID, patch.Apply)
}

// SetInitialLoading 设置段落的初始加载标记
func (d *Document) SetInitialLoading(segmentID string, loading bool) *Document {
	return d.UpdateSegment(segmentID, func(p Segment) Segment {
		p.IsInitialLoading = loading
		return p
	})
}

// Settle 清除没有请求负责的临时标记。processing 对仍有请求的句子返回 true，
// loading 对仍在批量翻译中的段落返回 true，为 nil 时视为没有。
// 没有需要清除的标记时返回 d 本身。
func (d *Document) Settle(processing func(segmentID string, s Sentence) bool, loading func(segmentID string) bool) *Document {
	var segments []Segment
	for i, p := range d.Segments {
		changed := false
		next := p
		if p.IsInitialLoading && (loading == nil || !loading(p.ID)) {
			next = p.clone()
			next.IsInitialLoading = false
			changed = true
		}
		for j, s := range p.Sentences {
			if !s.IsProcessing || (processing != nil && processing(p.ID, s)) {
				continue
			}
			if !changed {
				next = p.clone()
				changed = true
			}
			next.Sentences[j].IsProcessing = false
		}
		if !changed {
			continue
		}
		if segments == nil {
			segments = make([]Segment, len(d.Segments))
			copy(segments, d.Segments)
		}
		segments[i] = next
	}
	if segments == nil {
		return d
	}
	return d.withSegments(segments)
}

// TranslatedText 将译文展平为纯文本：段内句子以空格连接，段落之间空一行
func (d *Document) TranslatedText() string {
	paragraphs := make([]string, 0, d.Len())
	for _, p := range d.segments() {
		paragraphs = append(paragraphs, strings.Join(p.Translations(), " "))
	}
	return strings.Join(paragraphs, "\n\n")
}

var revisionCounter atomic.Uint64

// NextRevision 返回进程内单调递增的修订号
func NextRevision() uint64 {
	return revisionCounter.Add(1)
}

// observeRevisions 保证之后分配的修订号大于 d 中已有的修订号
func observeRevisions(d *Document) {
	for _, p := range d.segments() {
		for _, s := range p.Sentences {
			for {
				cur := revisionCounter.Load()
				if s.Revision <= cur || revisionCounter.CompareAndSwap(cur, s.Revision) {
					break
				}
			}
		}
	}
}

// String 返回字符串指针，便于构造 Patch
func String(s string) *string { return &s }

// Bool 返回布尔指针，便于构造 Patch
func Bool(b bool) *bool { return &b }
