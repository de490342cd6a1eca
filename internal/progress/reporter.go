package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/translator"
	"go.uber.org/zap"
)

// Counts 批量翻译的段落计数
type Counts struct {
	Done      int
	Applied   int
	Failed    int
	Discarded int
}

// Reporter 用 go-pretty 进度条显示批量翻译进度
type Reporter struct {
	mu     sync.Mutex
	counts Counts
	total  int

	writer   progress.Writer
	tracker  *progress.Tracker
	rendered chan struct{}
	started  bool
	logger   *zap.Logger
}

// NewReporter 创建进度报告器，total 为段落总数
func NewReporter(total int, out io.Writer, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}

	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Colors = progress.StyleColorsExample
	pw.Style().Options.PercentFormat = "%4.1f%%"
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true
	pw.Style().Visibility.Value = true
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetAutoStop(true)
	pw.SetTrackerLength(40)
	pw.SetMessageLength(24)
	pw.SetNumTrackersExpected(1)

	tracker := &progress.Tracker{
		Message: "批量翻译",
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(tracker)

	return &Reporter{
		total:    total,
		writer:   pw,
		tracker:  tracker,
		rendered: make(chan struct{}),
		logger:   logger,
	}
}

// Start 开始渲染
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	go func() {
		defer close(r.rendered)
		r.writer.Render()
	}()
}

// Observe 记录一个段落的处理结果，签名与 translator.ProgressFunc 一致
func (r *Reporter) Observe(segmentID string, outcome translator.Outcome) {
	r.mu.Lock()
	r.counts.Done++
	switch outcome {
	case translator.OutcomeApplied:
		r.counts.Applied++
	case translator.OutcomeFailed:
		r.counts.Failed++
	case translator.OutcomeDiscarded:
		r.counts.Discarded++
	}
	counts := r.counts
	r.mu.Unlock()

	r.tracker.Increment(1)
	r.tracker.UpdateMessage(fmt.Sprintf("批量翻译 (失败 %d)", counts.Failed))
	r.logger.Debug("segment progress",
		zap.String("segment", segmentID),
		zap.Stringer("outcome", outcome),
		zap.Int("done", counts.Done),
		zap.Int("total", r.total))
}

// Counts 返回当前计数
func (r *Reporter) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}

// Finish 结束进度条并等待渲染退出。取消时进度条标记为出错。
func (r *Reporter) Finish(cancelled bool) {
	counts := r.Counts()
	if cancelled {
		r.tracker.UpdateMessage(fmt.Sprintf("已取消 (%d/%d)", counts.Done, r.total))
		r.tracker.MarkAsErrored()
	} else {
		r.tracker.MarkAsDone()
	}

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.rendered
	}
}
