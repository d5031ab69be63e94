// pkg/stream/replay.go
package stream

import "sync"

// DefaultReplayCapacity 默认回放容量
const DefaultReplayCapacity = 1000

// ReplayBuffer 最近分发日志消息的有界环形缓冲
// 只存 log 类型消息；容量满时淘汰最旧条目，严格 FIFO
type ReplayBuffer struct {
	mu      sync.RWMutex
	entries []replayEntry
	head    int // 最旧条目下标
	size    int
}

// replayEntry 缓冲条目，事件原文用于过滤器匹配
type replayEntry struct {
	msg *Message
	ev  *Event
}

// NewReplayBuffer 创建回放缓冲
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = DefaultReplayCapacity
	}
	return &ReplayBuffer{
		entries: make([]replayEntry, capacity),
	}
}

// Append 追加一条日志消息，容量满时覆盖最旧条目
func (b *ReplayBuffer) Append(msg *Message, ev *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tail := (b.head + b.size) % len(b.entries)
	b.entries[tail] = replayEntry{msg: msg, ev: ev}
	if b.size < len(b.entries) {
		b.size++
	} else {
		b.head = (b.head + 1) % len(b.entries)
	}
}

// Drain 按时间序返回所有匹配过滤器的缓冲消息
// 只读，不修改缓冲；会话接入时同步调用一次
func (b *ReplayBuffer) Drain(filter *Filter) []*Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msgs := make([]*Message, 0, b.size)
	for i := 0; i < b.size; i++ {
		entry := b.entries[(b.head+i)%len(b.entries)]
		if filter.Matches(entry.ev) {
			msgs = append(msgs, entry.msg)
		}
	}
	return msgs
}

// Len 返回当前条目数
func (b *ReplayBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap 返回容量
func (b *ReplayBuffer) Cap() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
