package document

import (
	"strings"

	"github.com/google/uuid"
)

// IDGenerator 生成新的句子和段落 id
type IDGenerator func(prefix string) string

// NewID 使用 uuid 生成带前缀的 id
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// InsertSentenceAfter 在指定句子之后插入一个空句子，返回新文档和新句子 id
func (d *Document) InsertSentenceAfter(segmentID, sentenceID string, newID IDGenerator) (*Document, string, error) {
	p, ok := d.Segment(segmentID)
	if !ok {
		return d, "", ErrSegmentNotFound
	}
	if p.sentenceIndex(sentenceID) < 0 {
		return d, "", ErrSentenceNotFound
	}
	if newID == nil {
		newID = NewID
	}
	id := newID("s")
	next := d.UpdateSegment(segmentID, func(p Segment) Segment {
		i := p.sentenceIndex(sentenceID)
		sentences := make([]Sentence, 0, len(p.Sentences)+1)
		sentences = append(sentences, p.Sentences[:i+1]...)
		sentences = append(sentences, Sentence{ID: id})
		sentences = append(sentences, p.Sentences[i+1:]...)
		p.Sentences = sentences
		return p
	})
	return next, id, nil
}

// DeleteSentence 删除句子。段落因此变空时整个段落被移除。
func (d *Document) DeleteSentence(segmentID, sentenceID string) (*Document, error) {
	p, ok := d.Segment(segmentID)
	if !ok {
		return d, ErrSegmentNotFound
	}
	i := p.sentenceIndex(sentenceID)
	if i < 0 {
		return d, ErrSentenceNotFound
	}
	if len(p.Sentences) == 1 {
		return d.DeleteSegment(segmentID)
	}
	return d.UpdateSegment(segmentID, func(p Segment) Segment {
		p.Sentences = append(p.Sentences[:i:i], p.Sentences[i+1:]...)
		return p
	}), nil
}

// MergeWithNext 将句子与其后一句合并，两侧文本各自以空格连接并去除首尾空白。
// 句子是段落最后一句时不做任何改变。
func (d *Document) MergeWithNext(segmentID, sentenceID string) (*Document, error) {
	p, ok := d.Segment(segmentID)
	if !ok {
		return d, ErrSegmentNotFound
	}
	i := p.sentenceIndex(sentenceID)
	if i < 0 {
		return d, ErrSentenceNotFound
	}
	if i == len(p.Sentences)-1 {
		return d, nil
	}
	return d.UpdateSegment(segmentID, func(p Segment) Segment {
		cur, nxt := p.Sentences[i], p.Sentences[i+1]
		cur.Original = strings.TrimSpace(cur.Original + " " + nxt.Original)
		cur.Translated = strings.TrimSpace(cur.Translated + " " + nxt.Translated)
		cur.Revision = NextRevision()
		sentences := make([]Sentence, 0, len(p.Sentences)-1)
		sentences = append(sentences, p.Sentences[:i]...)
		sentences = append(sentences, cur)
		sentences = append(sentences, p.Sentences[i+2:]...)
		p.Sentences = sentences
		return p
	}), nil
}

// InsertSegmentAfter 在指定段落之后插入只含一个空句子的新段落
func (d *Document) InsertSegmentAfter(segmentID string, newID IDGenerator) (*Document, string, error) {
	i := d.segmentIndex(segmentID)
	if i < 0 {
		return d, "", ErrSegmentNotFound
	}
	if newID == nil {
		newID = NewID
	}
	seg := Segment{ID: newID("p"), Sentences: []Sentence{{ID: newID("s")}}}
	segments := make([]Segment, 0, len(d.Segments)+1)
	segments = append(segments, d.Segments[:i+1]...)
	segments = append(segments, seg)
	segments = append(segments, d.Segments[i+1:]...)
	return d.withSegments(segments), seg.ID, nil
}

// DeleteSegment 删除段落
func (d *Document) DeleteSegment(segmentID string) (*Document, error) {
	i := d.segmentIndex(segmentID)
	if i < 0 {
		return d, ErrSegmentNotFound
	}
	segments := make([]Segment, 0, len(d.Segments)-1)
	segments = append(segments, d.Segments[:i]...)
	segments = append(segments, d.Segments[i+1:]...)
	return d.withSegments(segments), nil
}
