package project

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/nerdneilsfield/go-bilingual-sync/internal/config"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
)

// FormatVersion 工程包格式版本
const FormatVersion = "3.9"

const (
	manifestName   = "project.json"
	sourceDir      = "source/"
	translatedName = "translation/translated.md"
)

var (
	// ErrMissingManifest 工程包中没有 project.json
	ErrMissingManifest = errors.New("bundle has no project.json")

	// ErrCorruptBundle 工程包无法解析
	ErrCorruptBundle = errors.New("corrupt project bundle")
)

// OriginalFile 导入时的原始文件，Data 为 data URL
type OriginalFile struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	LastModified int64  `json:"lastModified"`
	Data         string `json:"data"`
}

// NewOriginalFile 用文件内容构造 OriginalFile
func NewOriginalFile(name, mimeType string, modified time.Time, content []byte) *OriginalFile {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &OriginalFile{
		Name:         name,
		Type:         mimeType,
		LastModified: modified.UnixMilli(),
		Data:         "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content),
	}
}

// Content 解码 data URL 中的内容
func (f *OriginalFile) Content() ([]byte, error) {
	_, payload, ok := strings.Cut(f.Data, ",")
	if !ok {
		return nil, fmt.Errorf("original file %q: malformed data url", f.Name)
	}
	return base64.StdEncoding.DecodeString(payload)
}

// HistoryState 导出的一个历史快照
type HistoryState struct {
	Segments []document.Segment `json:"segments"`
}

// Manifest 对应 project.json
type Manifest struct {
	Version          string             `json:"version"`
	Timestamp        int64              `json:"timestamp"`
	Segments         []document.Segment `json:"segments"`
	Styles           []config.Style     `json:"styles"`
	CurrentStyleID   string             `json:"currentStyleId"`
	History          []HistoryState     `json:"history"`
	APISettings      providers.Settings `json:"apiSettings"`
	AutoSync         *bool              `json:"autoSync,omitempty"`
	HighlightEnabled *bool              `json:"highlightEnabled,omitempty"`
	OriginalFile     *OriginalFile      `json:"originalFile,omitempty"`
}

// Project 会话状态中需要进出工程包的部分
type Project struct {
	Document         *document.Document
	Styles           []config.Style
	CurrentStyleID   string
	History          []*document.Document
	APISettings      providers.Settings
	AutoSync         bool
	HighlightEnabled bool
	OriginalFile     *OriginalFile
	Timestamp        time.Time
}

// Export 将工程写成 zip
func Export(w io.Writer, p *Project) error {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	autoSync, highlight := p.AutoSync, p.HighlightEnabled
	m := Manifest{
		Version:          FormatVersion,
		Timestamp:        ts.UnixMilli(),
		Segments:         segmentsOf(p.Document),
		Styles:           p.Styles,
		CurrentStyleID:   p.CurrentStyleID,
		History:          make([]HistoryState, 0, len(p.History)),
		APISettings:      p.APISettings,
		AutoSync:         &autoSync,
		HighlightEnabled: &highlight,
		OriginalFile:     p.OriginalFile,
	}
	for _, snap := range p.History {
		m.History = append(m.History, HistoryState{Segments: segmentsOf(snap)})
	}

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	zw := zip.NewWriter(w)
	if err := writeEntry(zw, manifestName, manifest); err != nil {
		return err
	}
	if p.OriginalFile != nil && p.OriginalFile.Data != "" {
		content, err := p.OriginalFile.Content()
		if err != nil {
			return err
		}
		if err := writeEntry(zw, sourceDir+path.Base(p.OriginalFile.Name), content); err != nil {
			return err
		}
	}
	if err := writeEntry(zw, translatedName, []byte(p.Document.TranslatedText())); err != nil {
		return err
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func segmentsOf(d *document.Document) []document.Segment {
	if d == nil || d.Segments == nil {
		return []document.Segment{}
	}
	return d.Segments
}

// Import 读取工程包。历史快照不会被恢复。缺失的字段使用默认值。
func Import(r io.ReaderAt, size int64) (*Project, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBundle, err)
	}

	var manifestFile *zip.File
	for _, f := range zr.File {
		if f.Name == manifestName {
			manifestFile = f
			break
		}
	}
	if manifestFile == nil {
		return nil, ErrMissingManifest
	}

	rc, err := manifestFile.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBundle, err)
	}
	defer rc.Close()

	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBundle, err)
	}

	p := &Project{
		Document:       document.New(m.Segments...),
		Styles:         m.Styles,
		CurrentStyleID: m.CurrentStyleID,
		APISettings:    m.APISettings,
		AutoSync:       true,
		OriginalFile:   m.OriginalFile,
		Timestamp:      time.UnixMilli(m.Timestamp),
	}
	if len(p.Styles) == 0 {
		p.Styles = config.DefaultStyles()
	}
	if p.CurrentStyleID == "" {
		p.CurrentStyleID = config.DefaultStyleID
	}
	if p.APISettings.Model == "" && p.APISettings.BaseURL == "" && p.APISettings.APIKey == "" {
		p.APISettings = providers.DefaultSettings()
	}
	if m.AutoSync != nil {
		p.AutoSync = *m.AutoSync
	}
	if m.HighlightEnabled != nil {
		p.HighlightEnabled = *m.HighlightEnabled
	}
	return p, nil
}

// ExportFile 导出到文件。先写临时文件再重命名，失败时不影响已有文件。
func ExportFile(filename string, p *Project) error {
	var buf bytes.Buffer
	if err := Export(&buf, p); err != nil {
		return err
	}
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, ".bundle-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// ImportFile 从文件导入
func ImportFile(filename string) (*Project, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Import(f, info.Size())
}

// DefaultBundleName 返回按日期命名的工程包文件名
func DefaultBundleName(now time.Time) string {
	return "SyncProject_" + now.Format("2006-01-02") + ".zip"
}
