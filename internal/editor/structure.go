package editor

import (
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"go.uber.org/zap"
)

// mutate 校验通过后拍快照，再在最新文档上执行结构操作
func (s *Session) mutate(name string, check func(*document.Document) error, op func(*document.Document) (*document.Document, error)) error {
	if err := check(s.store.Current()); err != nil {
		return err
	}
	s.snapshot()

	var opErr error
	s.store.Update(func(d *document.Document) *document.Document {
		next, err := op(d)
		if err != nil {
			opErr = err
			return d
		}
		return next
	})
	if opErr != nil {
		s.logger.Warn("structural edit failed", zap.String("op", name), zap.Error(opErr))
		return opErr
	}
	s.markDirty()
	s.logger.Debug("structural edit applied", zap.String("op", name))
	return nil
}

func sentenceExists(segmentID, sentenceID string) func(*document.Document) error {
	return func(d *document.Document) error {
		if _, ok := d.Segment(segmentID); !ok {
			return document.ErrSegmentNotFound
		}
		if _, ok := d.Sentence(segmentID, sentenceID); !ok {
			return document.ErrSentenceNotFound
		}
		return nil
	}
}

func segmentExists(segmentID string) func(*document.Document) error {
	return func(d *document.Document) error {
		if _, ok := d.Segment(segmentID); !ok {
			return document.ErrSegmentNotFound
		}
		return nil
	}
}

// InsertSentenceAfter 在句子后插入空句子，返回新句子 id
func (s *Session) InsertSentenceAfter(segmentID, sentenceID string) (string, error) {
	var id string
	err := s.mutate("insert_sentence", sentenceExists(segmentID, sentenceID), func(d *document.Document) (*document.Document, error) {
		next, newID, err := d.InsertSentenceAfter(segmentID, sentenceID, s.newID)
		id = newID
		return next, err
	})
	return id, err
}

// DeleteSentence 删除句子，段落变空时一并删除
func (s *Session) DeleteSentence(segmentID, sentenceID string) error {
	return s.mutate("delete_sentence", sentenceExists(segmentID, sentenceID), func(d *document.Document) (*document.Document, error) {
		return d.DeleteSentence(segmentID, sentenceID)
	})
}

// MergeWithNext 将句子与下一句合并
func (s *Session) MergeWithNext(segmentID, sentenceID string) error {
	return s.mutate("merge_sentence", sentenceExists(segmentID, sentenceID), func(d *document.Document) (*document.Document, error) {
		return d.MergeWithNext(segmentID, sentenceID)
	})
}

// InsertSegmentAfter 在段落后插入只含一个空句子的新段落，返回新段落 id
func (s *Session) InsertSegmentAfter(segmentID string) (string, error) {
	var id string
	err := s.mutate("insert_segment", segmentExists(segmentID), func(d *document.Document) (*document.Document, error) {
		next, newID, err := d.InsertSegmentAfter(segmentID, s.newID)
		id = newID
		return next, err
	})
	return id, err
}

// DeleteSegment 经确认后删除段落及其全部句子
func (s *Session) DeleteSegment(segmentID string, confirm Confirmer) error {
	seg, ok := s.store.Current().Segment(segmentID)
	if !ok {
		return document.ErrSegmentNotFound
	}
	if confirm == nil || !confirm(seg) {
		return ErrDeleteNotConfirmed
	}
	return s.mutate("delete_segment", segmentExists(segmentID), func(d *document.Document) (*document.Document, error) {
		return d.DeleteSegment(segmentID)
	})
}
