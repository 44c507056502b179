package chat

import (
	"macbook-agent-server/src/core/utils"
)

// DedupTracker 工具调用去重集合，作用域为单轮对话
// 生产者在自己的事件循环内单线程访问，不需要加锁。
// 只有持久化写入成功后才调用Mark，写入失败的key留待终止事件时重试。
type DedupTracker struct {
	seen map[string]struct{}
}

// NewDedupTracker 创建去重集合
func NewDedupTracker() *DedupTracker {
	return &DedupTracker{seen: make(map[string]struct{})}
}

// Seen 判断key是否已提交
func (t *DedupTracker) Seen(key string) bool {
	_, ok := t.seen[key]
	return ok
}

// Mark 标记key已提交
func (t *DedupTracker) Mark(key string) {
	t.seen[key] = struct{}{}
}

// DedupKey 由工具名与入参的规范化哈希组合成去重key
// 入参序列化按键名排序，等价入参必然得到相同key。
func DedupKey(tool string, input map[string]interface{}) string {
	return tool + "_" + utils.CanonicalJSONHash(input)
}
