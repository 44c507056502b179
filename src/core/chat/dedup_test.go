package chat

import (
	"testing"
)

func TestDedupKeyStableAcrossKeyOrder(t *testing.T) {
	a := DedupKey("web_search", map[string]interface{}{"query": "MacBook Air M4 price", "count": 5})
	b := DedupKey("web_search", map[string]interface{}{"count": 5, "query": "MacBook Air M4 price"})
	if a != b {
		t.Errorf("同一入参不同键序的去重键不一致: %s vs %s", a, b)
	}
}

func TestDedupKeyDistinguishes(t *testing.T) {
	base := DedupKey("web_search", map[string]interface{}{"query": "M4"})

	if other := DedupKey("retrieve_macbook_facts", map[string]interface{}{"query": "M4"}); other == base {
		t.Errorf("不同工具的去重键不应相同")
	}
	if other := DedupKey("web_search", map[string]interface{}{"query": "M3"}); other == base {
		t.Errorf("不同入参的去重键不应相同")
	}
}

func TestDedupTrackerMarkAndSeen(t *testing.T) {
	tracker := NewDedupTracker()
	key := DedupKey("web_search", map[string]interface{}{"query": "M4"})

	if tracker.Seen(key) {
		t.Fatalf("未标记的键不应命中")
	}
	tracker.Mark(key)
	if !tracker.Seen(key) {
		t.Fatalf("已标记的键应命中")
	}

	// 未提交的键不受影响
	other := DedupKey("web_search", map[string]interface{}{"query": "M3"})
	if tracker.Seen(other) {
		t.Errorf("未标记的其他键不应命中")
	}
}
