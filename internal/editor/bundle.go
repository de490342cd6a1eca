package editor

import (
	"github.com/nerdneilsfield/go-bilingual-sync/internal/project"
	"go.uber.org/zap"
)

// Project 生成当前会话的工程快照。缓冲中的编辑不包含在内，需要时先调用 Flush。
func (s *Session) Project() *project.Project {
	limit := s.cfg.BundleHistoryLimit
	if limit <= 0 {
		limit = 5
	}

	doc := s.store.Current()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &project.Project{
		Document:         doc,
		Styles:           append(s.styles[:0:0], s.styles...),
		CurrentStyleID:   s.activeStyleLocked().ID,
		History:          s.history.Recent(limit),
		APISettings:      s.providerSettings,
		AutoSync:         s.autoSync,
		HighlightEnabled: s.highlight,
		OriginalFile:     s.originalFile,
		Timestamp:        s.clock.Now(),
	}
}

// Export 提交缓冲编辑后把会话写成工程包
func (s *Session) Export(filename string) error {
	s.Flush()
	if err := project.ExportFile(filename, s.Project()); err != nil {
		s.logger.Error("project export failed", zap.String("file", filename), zap.Error(err))
		return err
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	s.logger.Info("project exported", zap.String("file", filename))
	return nil
}

// Import 读取工程包并替换会话状态。读取失败时会话保持不变。
// 撤销栈被清空，工程包中的历史快照不会恢复。
func (s *Session) Import(filename string) error {
	p, err := project.ImportFile(filename)
	if err != nil {
		s.logger.Error("project import failed", zap.String("file", filename), zap.Error(err))
		return err
	}
	s.Apply(p)
	s.logger.Info("project imported",
		zap.String("file", filename),
		zap.Int("segments", p.Document.Len()))
	return nil
}

// Apply 用工程内容替换会话状态。进行中的批量翻译被取消。
func (s *Session) Apply(p *project.Project) {
	s.CancelTranslation()
	s.engine.Discard()
	s.restore(p.Document)
	s.history.Reset()
	s.coalescer.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles = append(p.Styles[:0:0], p.Styles...)
	s.currentStyleID = p.CurrentStyleID
	s.providerSettings = p.APISettings
	s.autoSync = p.AutoSync
	s.highlight = p.HighlightEnabled
	s.originalFile = p.OriginalFile
	s.dirty = false
}
