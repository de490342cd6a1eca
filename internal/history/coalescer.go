package history

import (
	"sync"
	"time"
)

// DefaultCoalesceWindow 连续编辑合并为一个撤销步骤的静默窗口
const DefaultCoalesceWindow = 2000 * time.Millisecond

// CoalesceState 编辑合并状态
type CoalesceState int

const (
	// Idle 没有进行中的编辑序列
	Idle CoalesceState = iota
	// Locked 编辑序列进行中，在截止时间前的编辑不再产生快照
	Locked
)

// Coalescer 决定一次字段编辑是否需要先拍快照。
// 只暴露 RecordEdit 和 Elapsed 两个操作，时间由调用方传入。
type Coalescer struct {
	mu       sync.Mutex
	window   time.Duration
	state    CoalesceState
	deadline time.Time
}

// NewCoalescer 创建合并器，window <= 0 时使用 DefaultCoalesceWindow
func NewCoalescer(window time.Duration) *Coalescer {
	if window <= 0 {
		window = DefaultCoalesceWindow
	}
	return &Coalescer{window: window}
}

// RecordEdit 记录一次编辑，返回是否应在写入前拍快照。
// 序列中的每次编辑都会把锁定截止时间推迟一个窗口。
func (c *Coalescer) RecordEdit(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed(now)
	capture := c.state == Idle
	c.state = Locked
	c.deadline = now.Add(c.window)
	return capture
}

// Elapsed 推进时间，截止时间已过则回到 Idle
func (c *Coalescer) Elapsed(now time.Time) CoalesceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed(now)
	return c.state
}

func (c *Coalescer) elapsed(now time.Time) {
	if c.state == Locked && !now.Before(c.deadline) {
		c.state = Idle
	}
}

// Reset 回到 Idle
func (c *Coalescer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	c.deadline = time.Time{}
}
