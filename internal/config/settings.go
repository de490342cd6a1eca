package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
	"go.uber.org/zap"
)

const (
	providerSettingsFile = "provider_settings.json"
	stylesFile           = "styles.toml"
)

// Style 翻译风格
type Style struct {
	ID     string `json:"id" toml:"id"`
	Name   string `json:"name" toml:"name"`
	Prompt string `json:"prompt" toml:"prompt"`
}

// DefaultStyleID 默认风格
const DefaultStyleID = "general"

// DefaultStyles 返回内置风格列表
func DefaultStyles() []Style {
	return []Style{
		{ID: "general", Name: "通用风格", Prompt: "中立、专业、准确，确保符合中文语境。"},
		{ID: "academic", Name: "学术风格", Prompt: "使用正式学术术语，语调严谨客观。"},
		{ID: "creative", Name: "文学风格", Prompt: "优美、自然、富有文采，注重意境。"},
	}
}

// styleFile 是风格列表在 TOML 中的结构
type styleFile struct {
	Styles []Style `toml:"styles"`
}

// SettingsStore 读写独立于工程包保存的两份设置：提供商设置和风格列表
type SettingsStore struct {
	dir    string
	logger *zap.Logger
}

// NewSettingsStore 创建设置存储
func NewSettingsStore(dir string, logger *zap.Logger) *SettingsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsStore{dir: dir, logger: logger}
}

// Dir 返回设置目录
func (s *SettingsStore) Dir() string {
	return s.dir
}

// LoadProviderSettings 读取提供商设置。文件缺失或损坏时返回默认值。
func (s *SettingsStore) LoadProviderSettings() providers.Settings {
	settings := providers.DefaultSettings()
	data, err := os.ReadFile(filepath.Join(s.dir, providerSettingsFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read provider settings", zap.Error(err))
		}
		return settings
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		s.logger.Warn("ignoring corrupt provider settings", zap.Error(err))
		return providers.DefaultSettings()
	}
	if settings.Model == "" {
		settings.Model = providers.DefaultModel
	}
	return settings
}

// SaveProviderSettings 保存提供商设置
func (s *SettingsStore) SaveProviderSettings(settings providers.Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode provider settings: %w", err)
	}
	return s.write(providerSettingsFile, data, 0o600)
}

// LoadStyles 读取风格列表。文件缺失、损坏或为空时返回内置风格。
func (s *SettingsStore) LoadStyles() []Style {
	var f styleFile
	_, err := toml.DecodeFile(filepath.Join(s.dir, stylesFile), &f)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("ignoring corrupt styles file", zap.Error(err))
		}
		return DefaultStyles()
	}
	if len(f.Styles) == 0 {
		return DefaultStyles()
	}
	return f.Styles
}

// SaveStyles 保存风格列表
func (s *SettingsStore) SaveStyles(styles []Style) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(styleFile{Styles: styles}); err != nil {
		return fmt.Errorf("encode styles: %w", err)
	}
	return s.write(stylesFile, buf.Bytes(), 0o644)
}

func (s *SettingsStore) write(name string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
