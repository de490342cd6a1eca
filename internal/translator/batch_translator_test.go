package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerdneilsfield/go-bilingual-sync/internal/config"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/test"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// gatedTranslator 阻塞每个批量请求直到 release 关闭，并记录最大并发
type gatedTranslator struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	seen     []string
}

func newGatedTranslator() *gatedTranslator {
	return &gatedTranslator{release: make(chan struct{})}
}

func (g *gatedTranslator) TranslateText(context.Context, string, string) (string, error) {
	return "", errors.New("unused")
}

func (g *gatedTranslator) ReverseTranslate(context.Context, string, string, string) (string, error) {
	return "", errors.New("unused")
}

func (g *gatedTranslator) TranslateParagraph(_ context.Context, sentences []string, _ string) ([]string, error) {
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	g.mu.Lock()
	g.seen = append(g.seen, sentences[0])
	g.mu.Unlock()

	<-g.release
	g.inFlight.Add(-1)

	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = "译:" + s
	}
	return out, nil
}

func makeDoc(segments int) *document.Document {
	doc := &document.Document{}
	for i := 0; i < segments; i++ {
		doc.Segments = append(doc.Segments, document.Segment{
			ID: fmt.Sprintf("p-%d", i),
			Sentences: []document.Sentence{
				{ID: fmt.Sprintf("s-%d-0", i), Original: fmt.Sprintf("Sentence %d.", i)},
			},
		})
	}
	return doc
}

func TestWorkerCountIsMinOfConcurrencyAndSegments(t *testing.T) {
	for _, m := range []int{1, 2, 3, 7} {
		t.Run(fmt.Sprintf("segments=%d", m), func(t *testing.T) {
			doc := makeDoc(m)
			store := document.NewStore(doc, zap.NewNop())
			gate := newGatedTranslator()
			bt := NewBatchTranslator(config.NewDefaultConfig(), gate, store, zap.NewNop())

			want := m
			if want > 3 {
				want = 3
			}

			done := make(chan *Result)
			go func() { done <- bt.TranslateDocument(context.Background(), doc, "style", nil) }()

			require.Eventually(t, func() bool { return gate.inFlight.Load() == int32(want) }, 2*time.Second, 5*time.Millisecond)
			close(gate.release)
			result := <-done

			assert.Equal(t, int32(want), gate.peak.Load())
			assert.Equal(t, m, result.Visited)
			assert.Equal(t, m, result.Applied)
			assert.Len(t, gate.seen, m, "each segment visited exactly once")

			for i := 0; i < m; i++ {
				s, _ := store.Current().Sentence(fmt.Sprintf("p-%d", i), fmt.Sprintf("s-%d-0", i))
				assert.Equal(t, fmt.Sprintf("译:Sentence %d.", i), s.Translated)
				p, _ := store.Current().Segment(fmt.Sprintf("p-%d", i))
				assert.False(t, p.IsInitialLoading)
			}
		})
	}
}

func TestCancelDiscardsInFlightResults(t *testing.T) {
	doc := makeDoc(6)
	store := document.NewStore(doc, zap.NewNop())
	gate := newGatedTranslator()
	bt := NewBatchTranslator(config.NewDefaultConfig(), gate, store, zap.NewNop())
	token := NewCancelToken()

	done := make(chan *Result)
	go func() { done <- bt.TranslateDocument(context.Background(), doc, "style", token) }()

	require.Eventually(t, func() bool { return gate.inFlight.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	p, _ := store.Current().Segment("p-0")
	assert.True(t, p.IsInitialLoading)

	token.Cancel()
	close(gate.release)
	result := <-done

	assert.True(t, result.Cancelled)
	assert.Equal(t, 3, result.Visited)
	assert.Equal(t, 3, result.Discarded)
	for _, seg := range store.Current().Segments {
		assert.Empty(t, seg.Sentences[0].Translated, seg.ID)
		assert.False(t, seg.IsInitialLoading, seg.ID)
	}
}

func TestMergeRulesAndErrorIsolation(t *testing.T) {
	doc := document.New(
		document.Segment{ID: "p-0", Sentences: []document.Sentence{
			{ID: "a", Original: "One.", Translated: "旧一"},
			{ID: "b", Original: "", Translated: "旧二"},
			{ID: "c", Original: "Three.", Translated: "旧三"},
		}},
		document.Segment{ID: "p-1", Sentences: []document.Sentence{
			{ID: "d", Original: "Four.", Translated: "旧四"},
		}},
	)
	store := document.NewStore(doc, zap.NewNop())

	tr := &test.MockTranslator{}
	tr.On("TranslateParagraph", mock.Anything, []string{"One.", " ", "Three."}, "style").
		Return([]string{"一", " ", "", "多余"}, nil).Once()
	tr.On("TranslateParagraph", mock.Anything, []string{"Four."}, "style").
		Return(nil, errors.New("API 请求失败: 502")).Once()

	cfg := config.NewDefaultConfig()
	cfg.Concurrency = 1
	var outcomes []string
	bt := NewBatchTranslator(cfg, tr, store, zap.NewNop())
	bt.OnProgress(func(id string, o Outcome) { outcomes = append(outcomes, id+":"+o.String()) })

	result := bt.TranslateDocument(context.Background(), doc, "style", nil)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"p-0:applied", "p-1:failed"}, outcomes)

	cur := store.Current()
	got := make([]string, 0, 4)
	for _, seg := range cur.Segments {
		got = append(got, seg.Translations()...)
		assert.False(t, seg.IsInitialLoading)
	}
	assert.Equal(t, []string{"一", "旧二", "旧三", "旧四"}, got)
	tr.AssertExpectations(t)
}

func TestEditedSentenceNotOverwritten(t *testing.T) {
	doc := makeDoc(1)
	store := document.NewStore(doc, zap.NewNop())

	tr := &test.MockTranslator{}
	tr.On("TranslateParagraph", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			// 请求进行中用户改写了这句
			store.Update(func(d *document.Document) *document.Document {
				return d.UpdateSentence("p-0", "s-0-0", func(s document.Sentence) document.Sentence {
					s.Translated = "手动"
					s.Revision = document.NextRevision()
					return s
				})
			})
		}).
		Return([]string{"自动"}, nil).Once()

	bt := NewBatchTranslator(nil, tr, store, nil)
	bt.TranslateDocument(context.Background(), doc, "style", nil)

	s, _ := store.Current().Sentence("p-0", "s-0-0")
	assert.Equal(t, "手动", s.Translated)
}

func TestEmptyDocument(t *testing.T) {
	store := document.NewStore(nil, nil)
	result := NewBatchTranslator(nil, newGatedTranslator(), store, nil).
		TranslateDocument(context.Background(), store.Current(), "", nil)
	assert.Equal(t, 0, result.Visited)
	assert.False(t, result.Cancelled)
}

func TestCancelBeforeStart(t *testing.T) {
	doc := makeDoc(4)
	gate := newGatedTranslator()
	token := NewCancelToken()
	token.Cancel()
	token.Cancel()

	result := NewBatchTranslator(nil, gate, document.NewStore(doc, nil), nil).
		TranslateDocument(context.Background(), doc, "", token)
	assert.Equal(t, 0, result.Visited)
	assert.True(t, result.Cancelled)
	assert.Empty(t, gate.seen)
	select {
	case <-token.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestBlankSentencesSentAsSpace(t *testing.T) {
	doc := document.New(document.Segment{ID: "p", Sentences: []document.Sentence{{ID: "x", Original: "  \t"}}})
	tr := &test.MockTranslator{}
	tr.On("TranslateParagraph", mock.Anything, mock.MatchedBy(func(in []string) bool {
		return len(in) == 1 && in[0] == " " && strings.TrimSpace(in[0]) == ""
	}), "").Return([]string{" "}, nil).Once()

	NewBatchTranslator(nil, tr, document.NewStore(doc, nil), nil).
		TranslateDocument(context.Background(), doc, "", nil)
	tr.AssertExpectations(t)
}

func TestConcurrencyCappedAtMaxWorkers(t *testing.T) {
	doc := makeDoc(7)
	store := document.NewStore(doc, zap.NewNop())
	gate := newGatedTranslator()
	cfg := config.NewDefaultConfig()
	cfg.Concurrency = 8
	bt := NewBatchTranslator(cfg, gate, store, zap.NewNop())

	done := make(chan *Result)
	go func() { done <- bt.TranslateDocument(context.Background(), doc, "style", nil) }()

	require.Eventually(t, func() bool { return gate.inFlight.Load() == MaxWorkers }, 2*time.Second, 5*time.Millisecond)
	close(gate.release)
	result := <-done

	assert.Equal(t, int32(MaxWorkers), gate.peak.Load())
	assert.Equal(t, 7, result.Applied)
}

func TestLoadingTracksSegmentsInFlight(t *testing.T) {
	doc := makeDoc(1)
	store := document.NewStore(doc, zap.NewNop())
	gate := newGatedTranslator()
	bt := NewBatchTranslator(config.NewDefaultConfig(), gate, store, zap.NewNop())

	done := make(chan *Result)
	go func() { done <- bt.TranslateDocument(context.Background(), doc, "style", nil) }()

	require.Eventually(t, func() bool { return bt.Loading("p-0") }, 2*time.Second, 5*time.Millisecond)
	close(gate.release)
	<-done
	assert.False(t, bt.Loading("p-0"))
}

func TestCancelledResultNotMergedIntoReplacedDocument(t *testing.T) {
	doc := makeDoc(1)
	store := document.NewStore(doc, zap.NewNop())
	gate := newGatedTranslator()
	bt := NewBatchTranslator(config.NewDefaultConfig(), gate, store, zap.NewNop())
	token := NewCancelToken()

	done := make(chan *Result)
	go func() { done <- bt.TranslateDocument(context.Background(), doc, "style", token) }()
	require.Eventually(t, func() bool { return gate.inFlight.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	token.Cancel()
	store.Replace(makeDoc(1))
	close(gate.release)
	result := <-done

	assert.Equal(t, 1, result.Discarded)
	s, _ := store.Current().Sentence("p-0", "s-0-0")
	assert.Empty(t, s.Translated)
}
