package document

import (
	"sync"

	"go.uber.org/zap"
)

// Store 持有当前文档。写入发布 fn 返回的 *Document，已发布的文档不会被原地修改，
// 旧的引用对读者保持不变。目标不存在等无变化的写入会原样发布当前引用。
type Store struct {
	mu     sync.RWMutex
	doc    *Document
	logger *zap.Logger
}

// NewStore 创建文档存储
func NewStore(doc *Document, logger *zap.Logger) *Store {
	if doc == nil {
		doc = &Document{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	observeRevisions(doc)
	return &Store{doc: doc, logger: logger}
}

// Current 返回当前文档
func (s *Store) Current() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Replace 整体替换文档，用于加载、导入和撤销
func (s *Store) Replace(doc *Document) *Document {
	if doc == nil {
		doc = &Document{}
	}
	observeRevisions(doc)
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	s.logger.Debug("document replaced", zap.Int("segments", doc.Len()))
	return doc
}

// Update 在最新文档上应用纯函数 fn 并发布结果
func (s *Store) Update(fn func(*Document) *Document) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.doc)
	if next == nil {
		next = &Document{}
	}
	s.doc = next
	return next
}

// MergeSentence 合并单个句子的字段
func (s *Store) MergeSentence(segmentID, sentenceID string, patch Patch) *Document {
	return s.Update(func(d *Document) *Document {
		return d.MergeSentence(segmentID, sentenceID, patch)
	})
}

// SetInitialLoading 设置段落的初始加载标记
func (s *Store) SetInitialLoading(segmentID string, loading bool) *Document {
	return s.Update(func(d *Document) *Document {
		return d.SetInitialLoading(segmentID, loading)
	})
}
