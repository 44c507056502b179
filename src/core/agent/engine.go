package agent

import "context"

// Message 引擎上下文消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// EventType 引擎生命周期事件类型
type EventType int

const (
	// EventContentDelta 增量输出片段
	EventContentDelta EventType = iota
	// EventToolCall 工具调用开始
	EventToolCall
	// EventToolResult 工具调用完成
	EventToolResult
	// EventFinal 最终完整回复，流结束
	EventFinal
	// EventError 引擎失败，流结束
	EventError
)

// Event 引擎产生的生命周期事件
// Final/Error 为终止事件，之后通道关闭
type Event struct {
	Type    EventType
	Content string                 // delta片段或最终回复
	Tool    string                 // 工具名
	Input   map[string]interface{} // 工具入参
	Result  string                 // 工具结果（未截断）
	Err     string                 // 错误描述
}

// Engine 推理引擎接口
// 返回的通道按产生顺序携带事件，终止事件后关闭。
// 实现不感知客户端连接，由调用方决定事件的转发与持久化。
type Engine interface {
	StreamEvents(ctx context.Context, sessionID, userText string, history []Message) (<-chan Event, error)
}
