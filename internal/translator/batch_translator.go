package translator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerdneilsfield/go-bilingual-sync/internal/config"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/translation"
	"go.uber.org/zap"
)

// Outcome 单个段落的处理结果
type Outcome int

const (
	// OutcomeApplied 译文已合并
	OutcomeApplied Outcome = iota
	// OutcomeFailed 提供商调用失败，文本保持不变
	OutcomeFailed
	// OutcomeDiscarded 取消后返回的结果被丢弃
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	default:
		return "discarded"
	}
}

// MaxWorkers 批量翻译的最大并发请求数，配置的并发数只能在此之下调低
const MaxWorkers = 3

// ProgressFunc 每个段落处理结束时调用
type ProgressFunc func(segmentID string, outcome Outcome)

// Result 一次批量翻译的统计
type Result struct {
	Total     int
	Visited   int
	Applied   int
	Failed    int
	Discarded int
	Cancelled bool
	Duration  time.Duration
}

// BatchTranslator 以有限并发逐段翻译整个文档
type BatchTranslator struct {
	config     *config.Config
	translator translation.Translator
	store      *document.Store
	logger     *zap.Logger
	progress   ProgressFunc

	mu     sync.Mutex
	active map[string]struct{}
}

// NewBatchTranslator 创建批量翻译器
func NewBatchTranslator(cfg *config.Config, tr translation.Translator, store *document.Store, logger *zap.Logger) *BatchTranslator {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchTranslator{
		config:     cfg,
		translator: tr,
		store:      store,
		logger:     logger,
		active:     make(map[string]struct{}),
	}
}

// OnProgress 设置进度回调
func (bt *BatchTranslator) OnProgress(fn ProgressFunc) {
	bt.progress = fn
}

// TranslateDocument 翻译 doc 中的全部段落。段落按顺序进入队列，
// 由 min(并发数, 段落数) 个 worker 取出，每个段落只处理一次。
// 取消令牌在取出前和请求返回后检查，已发出的请求不会被中断。
func (bt *BatchTranslator) TranslateDocument(ctx context.Context, doc *document.Document, stylePrompt string, token *CancelToken) *Result {
	start := time.Now()
	if token == nil {
		token = NewCancelToken()
	}

	result := &Result{Total: doc.Len()}
	workers := bt.config.Concurrency
	if workers <= 0 || workers > MaxWorkers {
		workers = MaxWorkers
	}
	if workers > doc.Len() {
		workers = doc.Len()
	}

	bt.logger.Info("starting bulk translation",
		zap.Int("segments", doc.Len()),
		zap.Int("workers", workers))

	// 创建工作队列
	queue := make(chan document.Segment, doc.Len())
	for _, seg := range doc.Segments {
		queue <- seg
	}
	close(queue)

	var visited, applied, failed, discarded atomic.Int32

	// 启动工作 goroutines
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				if token.Cancelled() {
					return
				}
				seg, ok := <-queue
				if !ok {
					return
				}
				visited.Add(1)

				outcome := bt.translateSegment(ctx, seg, stylePrompt, token)
				switch outcome {
				case OutcomeApplied:
					applied.Add(1)
				case OutcomeFailed:
					failed.Add(1)
				case OutcomeDiscarded:
					discarded.Add(1)
				}
				bt.logger.Debug("segment processed",
					zap.Int("workerID", workerID),
					zap.String("segment", seg.ID),
					zap.Stringer("outcome", outcome))
				if bt.progress != nil {
					bt.progress(seg.ID, outcome)
				}
			}
		}(i)
	}

	// 等待所有工作完成
	wg.Wait()

	result.Visited = int(visited.Load())
	result.Applied = int(applied.Load())
	result.Failed = int(failed.Load())
	result.Discarded = int(discarded.Load())
	result.Cancelled = token.Cancelled()
	result.Duration = time.Since(start)

	bt.logger.Info("bulk translation finished",
		zap.Int("visited", result.Visited),
		zap.Int("applied", result.Applied),
		zap.Int("failed", result.Failed),
		zap.Int("discarded", result.Discarded),
		zap.Bool("cancelled", result.Cancelled),
		zap.Duration("duration", result.Duration))
	return result
}

// translateSegment 翻译一个段落并合并结果
func (bt *BatchTranslator) translateSegment(ctx context.Context, seg document.Segment, stylePrompt string, token *CancelToken) Outcome {
	bt.setActive(seg.ID, true)
	bt.store.SetInitialLoading(seg.ID, true)
	defer func() {
		bt.setActive(seg.ID, false)
		bt.store.SetInitialLoading(seg.ID, false)
	}()

	texts := make([]string, len(seg.Sentences))
	for i, s := range seg.Sentences {
		texts[i] = s.Original
		if strings.TrimSpace(s.Original) == "" {
			texts[i] = " "
		}
	}

	callCtx, cancel := bt.requestContext(ctx)
	defer cancel()
	translations, err := bt.translator.TranslateParagraph(callCtx, texts, stylePrompt)
	if token.Cancelled() {
		return OutcomeDiscarded
	}
	if err != nil {
		bt.logger.Warn("segment translation failed",
			zap.String("segment", seg.ID),
			zap.Error(err))
		return OutcomeFailed
	}

	// 取消与合并在同一次写入中判断，取消后替换的新文档不会收到旧结果
	discarded := false
	bt.store.Update(func(d *document.Document) *document.Document {
		if token.Cancelled() {
			discarded = true
			return d
		}
		return mergeTranslations(d, seg, translations)
	})
	if discarded {
		return OutcomeDiscarded
	}
	return OutcomeApplied
}

func (bt *BatchTranslator) setActive(segmentID string, on bool) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if on {
		bt.active[segmentID] = struct{}{}
	} else {
		delete(bt.active, segmentID)
	}
}

// Loading 报告段落是否正在由本次批量翻译处理
func (bt *BatchTranslator) Loading(segmentID string) bool {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	_, ok := bt.active[segmentID]
	return ok
}

func (bt *BatchTranslator) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := bt.config.Timeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// mergeTranslations 按句子 id 写回译文。返回空串或单个空格的位置保留原译文，
// 请求发出后被编辑过的句子（修订号变化）不被覆盖，多余的译文被忽略。
func mergeTranslations(d *document.Document, seg document.Segment, translations []string) *document.Document {
	revisions := make(map[string]uint64, len(seg.Sentences))
	index := make(map[string]int, len(seg.Sentences))
	for i, s := range seg.Sentences {
		revisions[s.ID] = s.Revision
		index[s.ID] = i
	}

	return d.UpdateSegment(seg.ID, func(p document.Segment) document.Segment {
		for j, s := range p.Sentences {
			i, ok := index[s.ID]
			if !ok || i >= len(translations) || revisions[s.ID] != s.Revision {
				continue
			}
			if t := translations[i]; t != "" && t != " " {
				p.Sentences[j].Translated = t
			}
		}
		return p
	})
}
