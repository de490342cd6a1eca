package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/autosync"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/config"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/history"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/project"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/translator"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers/factory"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/translation"
	"go.uber.org/zap"
)

var (
	// ErrDeleteNotConfirmed 删除段落未得到确认
	ErrDeleteNotConfirmed = errors.New("segment deletion not confirmed")

	// ErrBulkRunning 已有批量翻译在进行
	ErrBulkRunning = errors.New("bulk translation already running")

	// ErrUnknownStyle 风格 id 不存在
	ErrUnknownStyle = errors.New("unknown style")
)

// Confirmer 删除段落前向用户确认
type Confirmer func(segment document.Segment) bool

// Session 持有一个编辑会话的全部状态：文档、撤销栈、风格、开关和提供商设置。
// 所有用户操作都经过 Session，后台翻译结果通过文档存储写回。
type Session struct {
	cfg        *config.Config
	store      *document.Store
	history    *history.Manager
	coalescer  *history.Coalescer
	engine     *autosync.Engine
	translator translation.Translator
	settings   *config.SettingsStore
	clock      clockwork.Clock
	logger     *zap.Logger
	newID      document.IDGenerator

	mu               sync.RWMutex
	styles           []config.Style
	currentStyleID   string
	autoSync         bool
	highlight        bool
	providerSettings providers.Settings
	originalFile     *project.OriginalFile
	dirty            bool
	bulkToken        *translator.CancelToken
	bulk             *translator.BatchTranslator
}

// New 创建编辑会话。风格和提供商设置从设置存储读取，没有存储时使用默认值。
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	options := sessionOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	if options.clock == nil {
		options.clock = clockwork.NewRealClock()
	}
	if options.newID == nil {
		options.newID = document.NewID
	}

	s := &Session{
		cfg:            cfg,
		store:          document.NewStore(nil, options.logger),
		history:        history.NewManager(cfg.HistoryLimit, options.logger),
		coalescer:      history.NewCoalescer(cfg.HistoryCoalesce()),
		settings:       options.settings,
		clock:          options.clock,
		logger:         options.logger,
		newID:          options.newID,
		currentStyleID: config.DefaultStyleID,
		autoSync:       cfg.AutoSync,
		highlight:      cfg.Highlight,
	}

	if s.settings != nil {
		s.styles = s.settings.LoadStyles()
		s.providerSettings = s.settings.LoadProviderSettings()
	} else {
		s.styles = config.DefaultStyles()
		s.providerSettings = providers.DefaultSettings()
	}

	s.translator = options.translator
	if s.translator == nil {
		builder := options.builder
		if builder == nil {
			builder = factory.New(options.logger)
		}
		svc, err := translation.New(s.EffectiveProviderSettings,
			translation.WithProviderBuilder(builder),
			translation.WithStructuredOutput(cfg.StructuredOutput),
			translation.WithLogger(options.logger))
		if err != nil {
			return nil, err
		}
		s.translator = svc
	}

	s.engine = autosync.NewEngine(s.store, s.translator, autosync.Config{
		Delay:          cfg.EditDebounce(),
		RequestTimeout: cfg.Timeout(),
		Clock:          s.clock,
		Logger:         options.logger,
	}, autosync.Hooks{
		Enabled:      s.AutoSync,
		StylePrompt:  s.stylePrompt,
		BeforeCommit: s.markDirty,
	})
	return s, nil
}

// Document 返回当前文档
func (s *Session) Document() *document.Document {
	return s.store.Current()
}

// Load 载入新文档。进行中的批量翻译被取消，缓冲中的编辑被丢弃，撤销栈被清空。
func (s *Session) Load(doc *document.Document, original *project.OriginalFile) {
	s.CancelTranslation()
	s.engine.Discard()
	s.restore(doc)
	s.history.Reset()
	s.coalescer.Reset()

	s.mu.Lock()
	s.originalFile = original
	s.dirty = false
	s.mu.Unlock()

	s.logger.Info("document loaded",
		zap.Int("segments", s.store.Current().Len()),
		zap.Int("sentences", s.store.Current().SentenceCount()))
}

// restore 发布恢复的文档。快照和工程包里的处理中、加载中标记
// 只在仍有对应请求时保留。
func (s *Session) restore(doc *document.Document) {
	s.store.Replace(doc)
	s.store.Update(func(d *document.Document) *document.Document {
		return s.engine.Settle(d, s.bulkLoading)
	})
}

// bulkLoading 报告段落是否正在批量翻译中
func (s *Session) bulkLoading(segmentID string) bool {
	s.mu.RLock()
	bt := s.bulk
	s.mu.RUnlock()
	return bt != nil && bt.Loading(segmentID)
}

// snapshot 在操作修改文档前拍快照
func (s *Session) snapshot() {
	s.history.Capture(s.store.Current())
}

func (s *Session) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Dirty 自上次载入或保存以来是否有修改
func (s *Session) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Edit 记录一次字段编辑。一轮连续编辑的第一次会先拍快照，
// 文本在静默后由自动同步引擎提交。
func (s *Session) Edit(segmentID, sentenceID string, side document.Side, text string) error {
	if _, ok := s.store.Current().Sentence(segmentID, sentenceID); !ok {
		return document.ErrSentenceNotFound
	}
	if s.coalescer.RecordEdit(s.clock.Now()) {
		s.snapshot()
	}
	s.engine.Edit(segmentID, sentenceID, side, text)
	return nil
}

// PendingText 返回字段当前应显示的文本：有未提交的编辑时返回缓冲文本
func (s *Session) PendingText(segmentID, sentenceID string, side document.Side) string {
	if text, ok := s.engine.Pending(sentenceID, side); ok {
		return text
	}
	sent, _ := s.store.Current().Sentence(segmentID, sentenceID)
	return sent.Text(side)
}

// Flush 立即提交所有缓冲编辑
func (s *Session) Flush() {
	s.engine.Flush()
}

// Wait 等待进行中的同步请求结束
func (s *Session) Wait() {
	s.engine.Wait()
}

// Undo 恢复最近的快照。缓冲中的编辑属于被撤销的状态，一并丢弃。
func (s *Session) Undo() bool {
	snap, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.engine.Discard()
	s.coalescer.Reset()
	s.restore(snap)
	s.markDirty()
	s.logger.Debug("undo applied", zap.Int("remaining", s.history.Len()))
	return true
}

// HistoryDepth 返回可撤销的步数
func (s *Session) HistoryDepth() int {
	return s.history.Len()
}

// TranslateSentence 用当前风格翻译单个句子
func (s *Session) TranslateSentence(segmentID, sentenceID string) error {
	if _, ok := s.store.Current().Sentence(segmentID, sentenceID); !ok {
		return document.ErrSentenceNotFound
	}
	s.snapshot()
	s.markDirty()
	s.engine.TranslateSentence(segmentID, sentenceID)
	return nil
}

// TranslateAll 批量翻译整个文档。同一时间只允许一次批量翻译，
// 整个过程是一个撤销步骤。
func (s *Session) TranslateAll(ctx context.Context, progress translator.ProgressFunc) (*translator.Result, error) {
	s.mu.Lock()
	if s.bulkToken != nil {
		s.mu.Unlock()
		return nil, ErrBulkRunning
	}
	token := translator.NewCancelToken()
	bt := translator.NewBatchTranslator(s.cfg, s.translator, s.store, s.logger)
	s.bulkToken = token
	s.bulk = bt
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.bulkToken = nil
		s.bulk = nil
		s.mu.Unlock()
	}()

	s.snapshot()
	s.markDirty()
	if progress != nil {
		bt.OnProgress(progress)
	}
	return bt.TranslateDocument(ctx, s.store.Current(), s.stylePrompt(), token), nil
}

// CancelTranslation 请求停止正在进行的批量翻译，没有时返回 false
func (s *Session) CancelTranslation() bool {
	s.mu.RLock()
	token := s.bulkToken
	s.mu.RUnlock()
	if token == nil {
		return false
	}
	token.Cancel()
	s.logger.Info("bulk translation cancel requested")
	return true
}

// Translating 是否有批量翻译在进行
func (s *Session) Translating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bulkToken != nil
}

// TestConnection 测试提供商连通性
func (s *Session) TestConnection(ctx context.Context) error {
	tester, ok := s.translator.(interface {
		TestConnection(context.Context) error
	})
	if !ok {
		return translation.ErrNoProvider
	}
	if timeout := s.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return tester.TestConnection(ctx)
}

// AutoSync 自动同步是否开启
func (s *Session) AutoSync() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoSync
}

// SetAutoSync 开关自动同步，只影响之后提交的编辑
func (s *Session) SetAutoSync(enabled bool) {
	s.mu.Lock()
	s.autoSync = enabled
	s.mu.Unlock()
}

// Highlight 修改高亮是否开启
func (s *Session) Highlight() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highlight
}

// SetHighlight 开关修改高亮
func (s *Session) SetHighlight(enabled bool) {
	s.mu.Lock()
	s.highlight = enabled
	s.mu.Unlock()
}

// ProviderSettings 返回保存的提供商设置
func (s *Session) ProviderSettings() providers.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providerSettings
}

// EffectiveProviderSettings 返回调用时使用的设置。没有密钥时使用配置文件的备用密钥。
func (s *Session) EffectiveProviderSettings() providers.Settings {
	settings := s.ProviderSettings()
	if settings.APIKey == "" {
		settings.APIKey = s.cfg.APIKey
	}
	return settings
}

// SetProviderSettings 更新并持久化提供商设置
func (s *Session) SetProviderSettings(settings providers.Settings) error {
	if settings.Model == "" {
		settings.Model = providers.DefaultModel
	}
	s.mu.Lock()
	s.providerSettings = settings
	s.mu.Unlock()
	if s.settings == nil {
		return nil
	}
	return s.settings.SaveProviderSettings(settings)
}

// OriginalFile 返回载入时的原始文件
func (s *Session) OriginalFile() *project.OriginalFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.originalFile
}
