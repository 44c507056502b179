package chat

import (
	"testing"
	"time"
)

func TestRelayQueueOrdering(t *testing.T) {
	q := NewRelayQueue(10)
	q.TryPut(NewContentDeltaEvent("a"))
	q.TryPut(NewContentDeltaEvent("b"))
	q.TryPut(NewDoneEvent())

	want := []EventType{EventContentDelta, EventContentDelta, EventDone}
	for i, wt := range want {
		ev, ok := q.Get(time.Second)
		if !ok {
			t.Fatalf("第%d个事件出队超时", i)
		}
		if ev.Type != wt {
			t.Errorf("第%d个事件类型 = %s, 期望 %s", i, ev.Type, wt)
		}
	}
}

func TestRelayQueueDropsWhenFull(t *testing.T) {
	q := NewRelayQueue(2)
	if !q.TryPut(NewContentDeltaEvent("a")) {
		t.Fatalf("未满队列不应丢弃")
	}
	if !q.TryPut(NewContentDeltaEvent("b")) {
		t.Fatalf("未满队列不应丢弃")
	}
	if q.TryPut(NewContentDeltaEvent("c")) {
		t.Fatalf("满队列应丢弃并返回false")
	}
	if got := q.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, 期望 1", got)
	}
	if got := q.Len(); got != 2 {
		t.Errorf("Len() = %d, 期望 2", got)
	}

	// 丢弃不影响已排队事件的顺序
	ev, _ := q.Get(time.Second)
	if ev.Content != "a" {
		t.Errorf("首个出队事件内容 = %q, 期望 a", ev.Content)
	}
}

func TestRelayQueueGetTimeout(t *testing.T) {
	q := NewRelayQueue(2)
	start := time.Now()
	_, ok := q.Get(50 * time.Millisecond)
	if ok {
		t.Fatalf("空队列出队应超时")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("超时提前返回: %v", elapsed)
	}
}

func TestRelayQueueDefaultSize(t *testing.T) {
	q := NewRelayQueue(0)
	for i := 0; i < 100; i++ {
		if !q.TryPut(NewContentDeltaEvent("x")) {
			t.Fatalf("默认容量下第%d次入队不应失败", i)
		}
	}
	if q.TryPut(NewContentDeltaEvent("x")) {
		t.Errorf("超出默认容量应丢弃")
	}
}
