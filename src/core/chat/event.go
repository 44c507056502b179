package chat

import "encoding/json"

// EventType 流式事件类型
type EventType string

// 事件类型常量，done/error 为终止事件
const (
	EventConversationID EventType = "conversation_id"
	EventContentDelta   EventType = "content_delta"
	EventToolCall       EventType = "tool_call"
	EventToolResult     EventType = "tool_result"
	EventContent        EventType = "content"
	EventDone           EventType = "done"
	EventError          EventType = "error"
)

// Event 推送给客户端的流式事件，每种类型只携带自己需要的字段
// 序列化后即为SSE帧中的JSON对象
type Event struct {
	Type           EventType              `json:"type"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Content        string                 `json:"content,omitempty"`
	Tool           string                 `json:"tool,omitempty"`
	Input          map[string]interface{} `json:"input,omitempty"`
	Result         string                 `json:"result,omitempty"`
	Message        string                 `json:"message,omitempty"`
}

// Terminal 判断是否为终止事件，终止事件之后不再有任何帧
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// MarshalJSON 按事件类型输出各自的固定字段集
// tool_call即使入参为空也要带上input键，保持帧结构稳定。
func (e Event) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"type": e.Type}
	switch e.Type {
	case EventConversationID:
		m["conversation_id"] = e.ConversationID
	case EventContentDelta, EventContent:
		m["content"] = e.Content
	case EventToolCall:
		m["tool"] = e.Tool
		input := e.Input
		if input == nil {
			input = map[string]interface{}{}
		}
		m["input"] = input
	case EventToolResult:
		m["tool"] = e.Tool
		m["result"] = e.Result
	case EventError:
		m["message"] = e.Message
	}
	return json.Marshal(m)
}

// NewConversationIDEvent 构造会话ID事件
func NewConversationIDEvent(id string) Event {
	return Event{Type: EventConversationID, ConversationID: id}
}

// NewContentDeltaEvent 构造增量内容事件
func NewContentDeltaEvent(text string) Event {
	return Event{Type: EventContentDelta, Content: text}
}

// NewToolCallEvent 构造工具调用开始事件
func NewToolCallEvent(tool string, input map[string]interface{}) Event {
	return Event{Type: EventToolCall, Tool: tool, Input: input}
}

// NewToolResultEvent 构造工具调用完成事件
func NewToolResultEvent(tool, result string) Event {
	return Event{Type: EventToolResult, Tool: tool, Result: result}
}

// NewContentEvent 构造最终完整回复事件
func NewContentEvent(text string) Event {
	return Event{Type: EventContent, Content: text}
}

// NewDoneEvent 构造完成事件
func NewDoneEvent() Event {
	return Event{Type: EventDone}
}

// NewErrorEvent 构造错误事件
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
