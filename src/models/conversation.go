package models

import (
	"time"

	"gorm.io/datatypes"
)

// 消息角色常量
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation 对话记录（一次会话，含多条消息）
type Conversation struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

// Message 单条对话消息
// 用户消息写入后不再变更；助手消息在流式输出期间原地更新，
// 最终由引擎的完整回复覆盖。
type Message struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);index;not null" json:"conversation_id"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }

// ToolCall 助手消息关联的工具调用记录
// 同一条助手消息下，(tool_name, input) 组合至多保存一次。
type ToolCall struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	MessageID string         `gorm:"type:varchar(36);index;not null" json:"message_id"`
	ToolName  string         `gorm:"size:64;not null" json:"tool_name"`
	Input     datatypes.JSON `gorm:"type:json" json:"input"`
	Result    *string        `gorm:"type:text" json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

func (ToolCall) TableName() string { return "tool_calls" }
