package chat

import (
	"sync/atomic"
	"time"
)

// RelayQueue 有界有序的事件转发队列
// 生产者（StreamProducer）与发送循环之间唯一的通信通道。
// 入队不阻塞：队列满时丢弃该投递事件，持久化不受影响。
type RelayQueue struct {
	ch      chan Event
	dropped atomic.Int64
}

// NewRelayQueue 创建转发队列，size<=0 时使用默认容量
func NewRelayQueue(size int) *RelayQueue {
	if size <= 0 {
		size = 100
	}
	return &RelayQueue{ch: make(chan Event, size)}
}

// TryPut 非阻塞入队，队列已满时丢弃并返回false
func (q *RelayQueue) TryPut(ev Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Get 出队，最多等待timeout；超时返回false，调用方借此检查生产者状态
func (q *RelayQueue) Get(timeout time.Duration) (Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-q.ch:
		return ev, true
	case <-timer.C:
		return Event{}, false
	}
}

// Len 当前排队事件数
func (q *RelayQueue) Len() int {
	return len(q.ch)
}

// Dropped 因队列饱和被丢弃的事件总数
func (q *RelayQueue) Dropped() int64 {
	return q.dropped.Load()
}
