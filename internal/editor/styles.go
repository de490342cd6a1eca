package editor

import (
	"github.com/nerdneilsfield/go-bilingual-sync/internal/config"
	"go.uber.org/zap"
)

// Styles 返回风格列表的副本
func (s *Session) Styles() []config.Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]config.Style(nil), s.styles...)
}

// ActiveStyle 返回当前风格。当前 id 不在列表中时回退到第一个风格。
func (s *Session) ActiveStyle() config.Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeStyleLocked()
}

func (s *Session) activeStyleLocked() config.Style {
	for _, st := range s.styles {
		if st.ID == s.currentStyleID {
			return st
		}
	}
	if len(s.styles) > 0 {
		return s.styles[0]
	}
	return config.Style{}
}

func (s *Session) stylePrompt() string {
	return s.ActiveStyle().Prompt
}

// SetActiveStyle 切换当前风格
func (s *Session) SetActiveStyle(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.styles {
		if st.ID == id {
			s.currentStyleID = id
			return nil
		}
	}
	return ErrUnknownStyle
}

// UpdateStylePrompt 修改风格提示词并立即持久化
func (s *Session) UpdateStylePrompt(id, prompt string) error {
	s.mu.Lock()
	idx := -1
	for i, st := range s.styles {
		if st.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrUnknownStyle
	}
	next := append([]config.Style(nil), s.styles...)
	next[idx].Prompt = prompt
	s.styles = next
	s.mu.Unlock()

	if s.settings == nil {
		return nil
	}
	if err := s.settings.SaveStyles(next); err != nil {
		s.logger.Warn("failed to persist styles", zap.Error(err))
		return err
	}
	return nil
}
