package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	// 日志
	Debug bool `mapstructure:"debug"`

	// SettingsDir 存放提供商设置和风格列表的目录
	SettingsDir string `mapstructure:"settings_dir"`

	// APIKey 提供商设置中没有密钥时使用的备用密钥
	APIKey string `mapstructure:"api_key"`

	// 批量翻译并发数，最多 3 个
	Concurrency int `mapstructure:"concurrency"`

	// 编辑防抖与历史合并（毫秒）
	EditDebounceMs    int `mapstructure:"edit_debounce_ms"`
	HistoryCoalesceMs int `mapstructure:"history_coalesce_ms"`

	// 撤销栈容量与导出时保留的快照数
	HistoryLimit       int `mapstructure:"history_limit"`
	BundleHistoryLimit int `mapstructure:"bundle_history_limit"`

	// RequestTimeout 单次提供商调用超时（秒），0 表示不限制
	RequestTimeout int `mapstructure:"request_timeout"`

	// 会话默认开关
	AutoSync         bool `mapstructure:"auto_sync"`
	Highlight        bool `mapstructure:"highlight"`
	StructuredOutput bool `mapstructure:"structured_output"`
}

// EditDebounce 返回编辑防抖时长
func (c *Config) EditDebounce() time.Duration {
	return time.Duration(c.EditDebounceMs) * time.Millisecond
}

// HistoryCoalesce 返回历史合并窗口
func (c *Config) HistoryCoalesce() time.Duration {
	return time.Duration(c.HistoryCoalesceMs) * time.Millisecond
}

// Timeout 返回单次调用超时
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// LoadConfig 从配置文件和环境变量加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果配置路径已指定，则直接使用
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName(".syncer")
		v.SetConfigType("yaml")
	}

	// 读取环境变量
	v.SetEnvPrefix("SYNCER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.SettingsDir == "" {
		config.SettingsDir = getDefaultSettingsDir()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}

	return &config, nil
}

// SaveConfig 保存配置到文件
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(home, ".syncer.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.MergeConfigMap(structToMap(config)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	return v.WriteConfig()
}

// NewDefaultConfig 创建一个新的默认配置
func NewDefaultConfig() *Config {
	return &Config{
		SettingsDir:        getDefaultSettingsDir(),
		Concurrency:        3,
		EditDebounceMs:     1200,
		HistoryCoalesceMs:  2000,
		HistoryLimit:       50,
		BundleHistoryLimit: 5,
		RequestTimeout:     120,
		AutoSync:           true,
	}
}

// getDefaultSettingsDir 返回默认设置目录
func getDefaultSettingsDir() string {
	configDir, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(configDir, "bilingual-sync")
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(homeDir, ".bilingual-sync")
	}

	return "./bilingual-sync"
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("debug", false)
	v.SetDefault("settings_dir", "")
	v.SetDefault("api_key", "")
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("edit_debounce_ms", d.EditDebounceMs)
	v.SetDefault("history_coalesce_ms", d.HistoryCoalesceMs)
	v.SetDefault("history_limit", d.HistoryLimit)
	v.SetDefault("bundle_history_limit", d.BundleHistoryLimit)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("auto_sync", d.AutoSync)
	v.SetDefault("highlight", d.Highlight)
	v.SetDefault("structured_output", d.StructuredOutput)
}

// structToMap 将配置转换为 viper 可合并的 map
func structToMap(config *Config) map[string]interface{} {
	return map[string]interface{}{
		"debug":                config.Debug,
		"settings_dir":         config.SettingsDir,
		"api_key":              config.APIKey,
		"concurrency":          config.Concurrency,
		"edit_debounce_ms":     config.EditDebounceMs,
		"history_coalesce_ms":  config.HistoryCoalesceMs,
		"history_limit":        config.HistoryLimit,
		"bundle_history_limit": config.BundleHistoryLimit,
		"request_timeout":      config.RequestTimeout,
		"auto_sync":            config.AutoSync,
		"highlight":            config.Highlight,
		"structured_output":    config.StructuredOutput,
	}
}
