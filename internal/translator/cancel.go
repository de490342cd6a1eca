package translator

import (
	"sync"
	"sync/atomic"
)

// CancelToken 协作式取消标记。设置后 worker 不再取新段落，
// 之后返回的结果被丢弃，但已发出的请求不会被中断。
type CancelToken struct {
	cancelled atomic.Bool
	once      sync.Once
	done      chan struct{}
}

// NewCancelToken 创建取消令牌
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel 设置取消标记，可重复调用
func (t *CancelToken) Cancel() {
	t.once.Do(func() {
		t.cancelled.Store(true)
		close(t.done)
	})
}

// Cancelled 是否已取消
func (t *CancelToken) Cancelled() bool {
	return t.cancelled.Load()
}

// Done 取消时关闭
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}
