package autosync

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/test"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type harness struct {
	store   *document.Store
	tr      *test.MockTranslator
	clock   clockwork.FakeClock
	engine  *Engine
	enabled atomic.Bool
	commits atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: document.NewStore(document.New(document.Segment{ID: "p-0", Sentences: []document.Sentence{
			{ID: "s-0-0", Original: "Hello.", Translated: "你好。"},
			{ID: "s-0-1", Original: "World.", Translated: "世界。"},
		}}), zap.NewNop()),
		tr:    &test.MockTranslator{},
		clock: clockwork.NewFakeClock(),
	}
	h.enabled.Store(true)
	h.engine = NewEngine(h.store, h.tr, Config{Clock: h.clock, Logger: zap.NewNop()}, Hooks{
		Enabled:      h.enabled.Load,
		StylePrompt:  func() string { return "formal" },
		BeforeCommit: func() { h.commits.Add(1) },
	})
	return h
}

func (h *harness) sentence(id string) document.Sentence {
	s, _ := h.store.Current().Sentence("p-0", id)
	return s
}

func TestDebounceCommitsLastValueOnce(t *testing.T) {
	h := newHarness(t)
	h.tr.On("ReverseTranslate", mock.Anything, "Hello.", "你好！！", "Hello. World.").Return("Hello!!", nil).Once()

	h.engine.Edit("p-0", "s-0-0", document.SideTranslated, "你")
	h.clock.Advance(500 * time.Millisecond)
	h.engine.Edit("p-0", "s-0-0", document.SideTranslated, "你好！")
	h.clock.Advance(1100 * time.Millisecond)
	h.engine.Edit("p-0", "s-0-0", document.SideTranslated, "你好！！")

	text, ok := h.engine.Pending("s-0-0", document.SideTranslated)
	require.True(t, ok)
	assert.Equal(t, "你好！！", text)
	assert.Equal(t, "你好。", h.sentence("s-0-0").Translated)

	h.clock.Advance(DefaultDelay)
	require.Eventually(t, func() bool { return h.sentence("s-0-0").Original == "Hello!!" }, waitFor, tick)
	h.engine.Wait()

	s := h.sentence("s-0-0")
	assert.Equal(t, "你好！！", s.Translated)
	assert.True(t, s.IsModified)
	assert.False(t, s.IsProcessing)
	assert.Equal(t, int32(1), h.commits.Load())
	assert.Equal(t, 0, h.engine.PendingCount())
	h.tr.AssertExpectations(t)
}

func TestOriginalEditTriggersForwardTranslation(t *testing.T) {
	h := newHarness(t)
	h.tr.On("TranslateText", mock.Anything, "World!", "formal").Return("世界！", nil).Once()

	h.engine.Edit("p-0", "s-0-1", document.SideOriginal, "World!")
	h.clock.Advance(DefaultDelay)

	require.Eventually(t, func() bool { return h.sentence("s-0-1").Translated == "世界！" }, waitFor, tick)
	h.engine.Wait()
	assert.Equal(t, "World!", h.sentence("s-0-1").Original)
	assert.False(t, h.sentence("s-0-1").IsProcessing)
	h.tr.AssertNotCalled(t, "ReverseTranslate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisabledCommitsWithoutRequests(t *testing.T) {
	h := newHarness(t)
	h.enabled.Store(false)

	h.engine.Edit("p-0", "s-0-0", document.SideTranslated, "嗨")
	h.engine.Edit("p-0", "s-0-1", document.SideOriginal, "Earth.")
	h.clock.Advance(DefaultDelay)

	require.Eventually(t, func() bool {
		return h.sentence("s-0-0").Translated == "嗨" && h.sentence("s-0-1").Original == "Earth."
	}, waitFor, tick)
	h.engine.Wait()

	assert.False(t, h.sentence("s-0-0").IsProcessing)
	assert.True(t, h.sentence("s-0-1").IsModified)
	assert.Equal(t, "世界。", h.sentence("s-0-1").Translated)
	h.tr.AssertNotCalled(t, "TranslateText", mock.Anything, mock.Anything, mock.Anything)
	h.tr.AssertNotCalled(t, "ReverseTranslate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFailureClearsProcessingOnly(t *testing.T) {
	h := newHarness(t)
	h.tr.On("TranslateText", mock.Anything, "Hi.", "formal").Return("", errors.New("API 请求失败: 500")).Once()

	h.engine.Edit("p-0", "s-0-0", document.SideOriginal, "Hi.")
	h.engine.Flush()
	h.engine.Wait()

	s := h.sentence("s-0-0")
	assert.Equal(t, "Hi.", s.Original)
	assert.Equal(t, "你好。", s.Translated)
	assert.False(t, s.IsProcessing)
}

func TestStaleResultDropped(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.tr.On("TranslateText", mock.Anything, "First.", "formal").
		Run(func(mock.Arguments) { <-release }).
		Return("第一", nil).Once()
	h.tr.On("TranslateText", mock.Anything, "Second.", "formal").Return("第二", nil).Once()

	h.engine.Edit("p-0", "s-0-0", document.SideOriginal, "First.")
	h.engine.Flush()
	require.True(t, h.sentence("s-0-0").IsProcessing)

	h.engine.Edit("p-0", "s-0-0", document.SideOriginal, "Second.")
	h.engine.Flush()
	require.Eventually(t, func() bool { return h.sentence("s-0-0").Translated == "第二" }, waitFor, tick)

	close(release)
	h.engine.Wait()

	s := h.sentence("s-0-0")
	assert.Equal(t, "Second.", s.Original)
	assert.Equal(t, "第二", s.Translated)
	assert.False(t, s.IsProcessing)
}

func TestSeparateKeysDebounceIndependently(t *testing.T) {
	h := newHarness(t)
	h.enabled.Store(false)

	h.engine.Edit("p-0", "s-0-0", document.SideOriginal, "A.")
	h.clock.Advance(800 * time.Millisecond)
	h.engine.Edit("p-0", "s-0-0", document.SideTranslated, "甲")
	h.clock.Advance(400 * time.Millisecond)

	require.Eventually(t, func() bool { return h.sentence("s-0-0").Original == "A." }, waitFor, tick)
	_, pending := h.engine.Pending("s-0-0", document.SideTranslated)
	assert.True(t, pending)

	h.clock.Advance(800 * time.Millisecond)
	require.Eventually(t, func() bool { return h.sentence("s-0-0").Translated == "甲" }, waitFor, tick)
}

func TestDiscardDropsPendingEdits(t *testing.T) {
	h := newHarness(t)
	h.engine.Edit("p-0", "s-0-0", document.SideOriginal, "Gone.")
	h.engine.Discard()
	h.clock.Advance(2 * DefaultDelay)
	h.engine.Wait()

	assert.Equal(t, "Hello.", h.sentence("s-0-0").Original)
	assert.Equal(t, int32(0), h.commits.Load())
}

func TestCommitToVanishedSentence(t *testing.T) {
	h := newHarness(t)
	h.engine.Edit("p-0", "s-0-1", document.SideOriginal, "Late.")
	h.store.Update(func(d *document.Document) *document.Document {
		next, _ := d.DeleteSentence("p-0", "s-0-1")
		return next
	})
	h.engine.Flush()
	h.engine.Wait()

	_, ok := h.store.Current().Sentence("p-0", "s-0-1")
	assert.False(t, ok)
	h.tr.AssertNotCalled(t, "TranslateText", mock.Anything, mock.Anything, mock.Anything)
}

func TestTranslateSentence(t *testing.T) {
	h := newHarness(t)
	h.tr.On("TranslateText", mock.Anything, "World.", "formal").Return("世界（新）", nil).Once()

	require.True(t, h.engine.TranslateSentence("p-0", "s-0-1"))
	h.engine.Wait()

	s := h.sentence("s-0-1")
	assert.Equal(t, "世界（新）", s.Translated)
	assert.True(t, s.IsModified)
	assert.False(t, s.IsProcessing)
	assert.False(t, h.engine.TranslateSentence("p-0", "missing"))
}

func TestMergeDuringRequestClearsProcessing(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.tr.On("TranslateText", mock.Anything, "Hi.", "formal").
		Run(func(mock.Arguments) { <-release }).
		Return("嗨。", nil).Once()

	h.engine.Edit("p-0", "s-0-0", document.SideOriginal, "Hi.")
	h.engine.Flush()
	require.True(t, h.sentence("s-0-0").IsProcessing)

	h.store.Update(func(d *document.Document) *document.Document {
		next, err := d.MergeWithNext("p-0", "s-0-0")
		require.NoError(t, err)
		return next
	})
	close(release)
	h.engine.Wait()

	s := h.sentence("s-0-0")
	assert.Equal(t, "Hi. World.", s.Original)
	assert.Equal(t, "你好。 世界。", s.Translated, "result for the old text is dropped")
	assert.False(t, s.IsProcessing)
}

func TestSettleKeepsOnlyInFlightFlags(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.tr.On("TranslateText", mock.Anything, "World.", "formal").
		Run(func(mock.Arguments) { <-release }).
		Return("世界！", nil).Once()

	require.True(t, h.engine.TranslateSentence("p-0", "s-0-1"))
	live := h.sentence("s-0-1")
	require.True(t, live.IsProcessing)
	assert.True(t, h.engine.InFlight("p-0", "s-0-1", live.Revision))

	orphan := h.store.Current().MergeSentence("p-0", "s-0-0", document.Patch{IsProcessing: document.Bool(true)})
	settled := h.engine.Settle(orphan, nil)
	a, _ := settled.Sentence("p-0", "s-0-0")
	b, _ := settled.Sentence("p-0", "s-0-1")
	assert.False(t, a.IsProcessing)
	assert.True(t, b.IsProcessing)

	close(release)
	h.engine.Wait()
	assert.False(t, h.engine.InFlight("p-0", "s-0-1", live.Revision))
	assert.False(t, h.sentence("s-0-1").IsProcessing)
}
