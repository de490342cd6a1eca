package history

import (
	"sync"

	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"go.uber.org/zap"
)

// DefaultLimit 撤销栈的默认容量
const DefaultLimit = 50

// Manager 是有界的快照撤销栈，最新的快照在栈顶
type Manager struct {
	mu        sync.Mutex
	snapshots []*document.Document
	limit     int
	logger    *zap.Logger
}

// NewManager 创建历史管理器，limit <= 0 时使用 DefaultLimit
func NewManager(limit int, logger *zap.Logger) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{limit: limit, logger: logger}
}

// Capture 压入 doc 的深拷贝，超出容量时丢弃最旧的快照
func (m *Manager) Capture(doc *document.Document) {
	snap := doc.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snap)
	if over := len(m.snapshots) - m.limit; over > 0 {
		// 重新分配，释放被丢弃快照的引用
		m.snapshots = append([]*document.Document(nil), m.snapshots[over:]...)
	}
	m.logger.Debug("snapshot captured", zap.Int("depth", len(m.snapshots)))
}

// Undo 弹出最新的快照。栈为空时返回 false。
func (m *Manager) Undo() (*document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.snapshots)
	if n == 0 {
		return nil, false
	}
	snap := m.snapshots[n-1]
	m.snapshots[n-1] = nil
	m.snapshots = m.snapshots[:n-1]
	m.logger.Debug("snapshot restored", zap.Int("depth", n-1))
	// 调用方可能继续修改返回值，栈中不保留其引用
	return snap, true
}

// Reset 清空撤销栈
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = nil
}

// Len 返回快照数量
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

// Recent 返回最近的至多 n 个快照的深拷贝，最新的在前
func (m *Manager) Recent(n int) []*document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.snapshots) {
		n = len(m.snapshots)
	}
	out := make([]*document.Document, 0, n)
	for i := len(m.snapshots) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.snapshots[i].Clone())
	}
	return out
}
