package autosync

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/translation"
	"go.uber.org/zap"
)

// DefaultDelay 同一字段停止输入多久后提交
const DefaultDelay = 1200 * time.Millisecond

// Config 引擎配置
type Config struct {
	// Delay 防抖延迟，<= 0 时使用 DefaultDelay
	Delay time.Duration
	// RequestTimeout 单次提供商调用的超时，0 表示不限制
	RequestTimeout time.Duration
	Clock          clockwork.Clock
	Logger         *zap.Logger
}

// Hooks 由编辑会话提供的回调
type Hooks struct {
	// Enabled 返回自动同步是否开启
	Enabled func() bool
	// StylePrompt 返回当前风格提示词
	StylePrompt func() string
	// BeforeCommit 在编辑写入文档前调用
	BeforeCommit func()
}

type editKey struct {
	sentenceID string
	side       document.Side
}

type requestKey struct {
	segmentID  string
	sentenceID string
}

type pendingEdit struct {
	segmentID  string
	sentenceID string
	side       document.Side
	text       string
	seq        uint64
	timer      clockwork.Timer
}

// Engine 缓冲字段编辑，静默后提交到文档，并在开启自动同步时
// 为对侧字段发起翻译请求
type Engine struct {
	store      *document.Store
	translator translation.Translator
	hooks      Hooks
	delay      time.Duration
	timeout    time.Duration
	clock      clockwork.Clock
	logger     *zap.Logger

	mu       sync.Mutex
	pending  map[editKey]*pendingEdit
	inflight map[requestKey]uint64
	seq      uint64
	wg       sync.WaitGroup
}

// NewEngine 创建自动同步引擎
func NewEngine(store *document.Store, translator translation.Translator, cfg Config, hooks Hooks) *Engine {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		store:      store,
		translator: translator,
		hooks:      hooks,
		delay:      cfg.Delay,
		timeout:    cfg.RequestTimeout,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		pending:    make(map[editKey]*pendingEdit),
		inflight:   make(map[requestKey]uint64),
	}
}

// Edit 缓冲一次编辑并重新计时。同一 (句子, 侧) 在延迟内的多次编辑只提交最后一次。
func (e *Engine) Edit(segmentID, sentenceID string, side document.Side, text string) {
	key := editKey{sentenceID: sentenceID, side: side}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pending[key]; ok {
		p.timer.Stop()
	}
	e.seq++
	seq := e.seq
	e.pending[key] = &pendingEdit{
		segmentID:  segmentID,
		sentenceID: sentenceID,
		side:       side,
		text:       text,
		seq:        seq,
		timer:      e.clock.AfterFunc(e.delay, func() { e.fire(key, seq) }),
	}
}

// Pending 返回尚未提交的本地文本
func (e *Engine) Pending(sentenceID string, side document.Side) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pending[editKey{sentenceID: sentenceID, side: side}]
	if !ok {
		return "", false
	}
	return p.text, true
}

// PendingCount 返回缓冲中的编辑数量
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) fire(key editKey, seq uint64) {
	e.mu.Lock()
	p, ok := e.pending[key]
	if !ok || p.seq != seq {
		e.mu.Unlock()
		return
	}
	delete(e.pending, key)
	e.mu.Unlock()

	e.commit(p)
}

// takeAll 取出并停止全部缓冲编辑，按编辑先后排序
func (e *Engine) takeAll() []*pendingEdit {
	e.mu.Lock()
	defer e.mu.Unlock()
	edits := make([]*pendingEdit, 0, len(e.pending))
	for key, p := range e.pending {
		p.timer.Stop()
		edits = append(edits, p)
		delete(e.pending, key)
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].seq < edits[j].seq })
	return edits
}

// Flush 立即提交全部缓冲编辑
func (e *Engine) Flush() {
	for _, p := range e.takeAll() {
		e.commit(p)
	}
}

// Discard 丢弃全部缓冲编辑，用于加载新文档
func (e *Engine) Discard() {
	if n := len(e.takeAll()); n > 0 {
		e.logger.Debug("pending edits discarded", zap.Int("count", n))
	}
}

// Settle 清除 d 中没有进行中请求的处理中标记，用于撤销和导入后恢复的文档。
// loading 判断段落的初始加载标记是否仍有批量翻译负责。
func (e *Engine) Settle(d *document.Document, loading func(segmentID string) bool) *document.Document {
	return d.Settle(func(segmentID string, s document.Sentence) bool {
		return e.InFlight(segmentID, s.ID, s.Revision)
	}, loading)
}

// Wait 等待所有进行中的同步请求结束
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) enabled() bool {
	return e.hooks.Enabled == nil || e.hooks.Enabled()
}

func (e *Engine) stylePrompt() string {
	if e.hooks.StylePrompt == nil {
		return ""
	}
	return e.hooks.StylePrompt()
}

// commit 将编辑写入文档，开启自动同步时发起对侧翻译
func (e *Engine) commit(p *pendingEdit) {
	if e.hooks.BeforeCommit != nil {
		e.hooks.BeforeCommit()
	}
	enabled := e.enabled()

	var (
		found    bool
		current  document.Sentence
		siblings []string
	)
	e.store.Update(func(d *document.Document) *document.Document {
		if _, ok := d.Sentence(p.segmentID, p.sentenceID); !ok {
			return d
		}
		found = true
		next := d.UpdateSentence(p.segmentID, p.sentenceID, func(s document.Sentence) document.Sentence {
			if p.side == document.SideTranslated {
				s.Translated = p.text
			} else {
				s.Original = p.text
			}
			s.IsModified = true
			s.IsProcessing = enabled
			s.Revision = document.NextRevision()
			if enabled {
				e.track(p.segmentID, p.sentenceID, s.Revision)
			}
			current = s
			return s
		})
		seg, _ := next.Segment(p.segmentID)
		siblings = seg.Originals()
		return next
	})

	if !found {
		e.logger.Debug("edit target vanished before commit",
			zap.String("segment", p.segmentID),
			zap.String("sentence", p.sentenceID))
		return
	}
	e.logger.Debug("edit committed",
		zap.String("sentence", p.sentenceID),
		zap.String("side", string(p.side)),
		zap.Bool("auto_sync", enabled))
	if !enabled {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		var (
			out string
			err error
		)
		ctx, cancel := e.requestContext()
		defer cancel()
		if p.side == document.SideTranslated {
			out, err = e.translator.ReverseTranslate(ctx, current.Original, p.text, strings.Join(siblings, " "))
		} else {
			out, err = e.translator.TranslateText(ctx, p.text, e.stylePrompt())
		}
		e.apply(p.segmentID, p.sentenceID, p.side.Opposite(), current.Revision, out, err)
	}()
}

// TranslateSentence 用当前风格正向翻译单个句子，结果标记为已修改
func (e *Engine) TranslateSentence(segmentID, sentenceID string) bool {
	var (
		found   bool
		current document.Sentence
	)
	e.store.Update(func(d *document.Document) *document.Document {
		if _, ok := d.Sentence(segmentID, sentenceID); !ok {
			return d
		}
		found = true
		return d.UpdateSentence(segmentID, sentenceID, func(s document.Sentence) document.Sentence {
			s.IsProcessing = true
			s.Revision = document.NextRevision()
			e.track(segmentID, sentenceID, s.Revision)
			current = s
			return s
		})
	})
	if !found {
		return false
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := e.requestContext()
		defer cancel()
		out, err := e.translator.TranslateText(ctx, current.Original, e.stylePrompt())
		e.apply(segmentID, sentenceID, document.SideTranslated, current.Revision, out, err)
	}()
	return true
}

func (e *Engine) requestContext() (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(context.Background(), e.timeout)
	}
	return context.WithCancel(context.Background())
}

// track 登记一个进行中的请求，同一句子只保留最新的修订号
func (e *Engine) track(segmentID, sentenceID string, revision uint64) {
	e.mu.Lock()
	e.inflight[requestKey{segmentID: segmentID, sentenceID: sentenceID}] = revision
	e.mu.Unlock()
}

// untrack 注销请求，已被更新的请求覆盖时不做处理
func (e *Engine) untrack(segmentID, sentenceID string, revision uint64) {
	key := requestKey{segmentID: segmentID, sentenceID: sentenceID}
	e.mu.Lock()
	if e.inflight[key] == revision {
		delete(e.inflight, key)
	}
	e.mu.Unlock()
}

// InFlight 报告句子在给定修订号上是否有进行中的请求
func (e *Engine) InFlight(segmentID, sentenceID string, revision uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rev, ok := e.inflight[requestKey{segmentID: segmentID, sentenceID: sentenceID}]
	return ok && rev == revision
}

// apply 写回异步结果。句子的修订号已变化时结果作废；
// 此时若当前修订号上没有请求，处理中标记一并清除。
func (e *Engine) apply(segmentID, sentenceID string, target document.Side, revision uint64, out string, err error) {
	e.untrack(segmentID, sentenceID, revision)

	stale := false
	e.store.Update(func(d *document.Document) *document.Document {
		s, ok := d.Sentence(segmentID, sentenceID)
		if !ok {
			stale = true
			return d
		}
		if s.Revision != revision {
			stale = true
			if !s.IsProcessing || e.InFlight(segmentID, sentenceID, s.Revision) {
				return d
			}
			return d.MergeSentence(segmentID, sentenceID, document.Patch{IsProcessing: document.Bool(false)})
		}
		return d.UpdateSentence(segmentID, sentenceID, func(s document.Sentence) document.Sentence {
			if err == nil {
				if target == document.SideTranslated {
					s.Translated = out
					s.IsModified = true
				} else {
					s.Original = out
				}
			}
			s.IsProcessing = false
			return s
		})
	})

	switch {
	case stale:
		e.logger.Debug("stale sync result dropped",
			zap.String("sentence", sentenceID),
			zap.Uint64("revision", revision))
	case err != nil:
		e.logger.Warn("sync request failed",
			zap.String("segment", segmentID),
			zap.String("sentence", sentenceID),
			zap.Error(err))
	}
}
