package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"macbook-agent-server/src/core/utils"
	"macbook-agent-server/src/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HistoryToolCall 历史消息上挂载的工具调用
type HistoryToolCall struct {
	ID        string                 `json:"id"`
	ToolName  string                 `json:"tool_name"`
	Input     map[string]interface{} `json:"input"`
	Result    string                 `json:"result"`
	CreatedAt time.Time              `json:"created_at"`
}

// HistoryMessage 带工具调用的历史消息，用于构建引擎上下文
type HistoryMessage struct {
	MessageID string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	ToolCalls []HistoryToolCall `json:"tool_calls"`
}

// ConversationStore 对话持久化网关
// 所有写入按ID幂等；一次写入调用成功返回后即视为已落库。
type ConversationStore interface {
	// CreateOrGetConversation 获取或创建对话；id为空时生成新ID，
	// id非空但不存在时以该ID创建
	CreateOrGetConversation(ctx context.Context, id string) (string, error)
	// SaveMessage 保存消息；messageID非空时原地更新内容，否则插入新记录
	SaveMessage(ctx context.Context, conversationID, role, content, messageID string) (string, error)
	// SaveToolCall 保存一条工具调用记录
	SaveToolCall(ctx context.Context, messageID, toolName string, input map[string]interface{}, result string) (string, error)
	// GetHistory 返回最近limit条消息（从旧到新），并挂载各自的工具调用
	GetHistory(ctx context.Context, conversationID string, limit int) ([]HistoryMessage, error)
	// DeleteConversation 删除对话并级联删除其消息与工具调用
	DeleteConversation(ctx context.Context, conversationID string) error
}

// GormConversationStore 基于GORM的对话存储实现
type GormConversationStore struct {
	db     *gorm.DB
	logger *utils.Logger
}

// NewGormConversationStore 创建对话存储实例
func NewGormConversationStore(db *gorm.DB, logger *utils.Logger) *GormConversationStore {
	return &GormConversationStore{db: db, logger: logger}
}

// CreateOrGetConversation 获取或创建对话
func (s *GormConversationStore) CreateOrGetConversation(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	} else {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Conversation{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return "", err
		}
		if count > 0 {
			return id, nil
		}
	}

	conv := models.Conversation{ID: id}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return "", err
	}
	return id, nil
}

// SaveMessage 保存消息，messageID非空时原地更新
func (s *GormConversationStore) SaveMessage(ctx context.Context, conversationID, role, content, messageID string) (string, error) {
	if messageID != "" {
		res := s.db.WithContext(ctx).Model(&models.Message{}).
			Where("id = ?", messageID).
			Update("content", content)
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 0 {
			return "", fmt.Errorf("消息不存在: %s", messageID)
		}
		s.touchConversation(ctx, conversationID)
		return messageID, nil
	}

	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return "", err
	}
	s.touchConversation(ctx, conversationID)
	return msg.ID, nil
}

// SaveToolCall 保存工具调用记录
func (s *GormConversationStore) SaveToolCall(ctx context.Context, messageID, toolName string, input map[string]interface{}, result string) (string, error) {
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("序列化工具入参失败: %v", err)
	}

	tc := models.ToolCall{
		ID:        uuid.NewString(),
		MessageID: messageID,
		ToolName:  toolName,
		Input:     datatypes.JSON(inputJSON),
		Result:    &result,
	}
	if err := s.db.WithContext(ctx).Create(&tc).Error; err != nil {
		return "", err
	}
	return tc.ID, nil
}

// GetHistory 获取最近limit条消息（从旧到新），挂载工具调用
func (s *GormConversationStore) GetHistory(ctx context.Context, conversationID string, limit int) ([]HistoryMessage, error) {
	var rows []models.Message
	query := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	// 倒序查询拿到最近的limit条，反转为时间正序
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	// 批量查询关联的工具调用
	msgIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		msgIDs = append(msgIDs, r.ID)
	}
	toolCallMap := make(map[string][]HistoryToolCall)
	if len(msgIDs) > 0 {
		var calls []models.ToolCall
		if err := s.db.WithContext(ctx).
			Where("message_id IN ?", msgIDs).
			Order("created_at ASC").
			Find(&calls).Error; err != nil {
			return nil, err
		}
		for _, call := range calls {
			input := make(map[string]interface{})
			if len(call.Input) > 0 {
				if err := json.Unmarshal(call.Input, &input); err != nil {
					s.logger.Warn("解析工具入参失败: %v, tool_call_id=%s", err, call.ID)
				}
			}
			result := ""
			if call.Result != nil {
				result = *call.Result
			}
			toolCallMap[call.MessageID] = append(toolCallMap[call.MessageID], HistoryToolCall{
				ID:        call.ID,
				ToolName:  call.ToolName,
				Input:     input,
				Result:    result,
				CreatedAt: call.CreatedAt,
			})
		}
	}

	messages := make([]HistoryMessage, 0, len(rows))
	for _, r := range rows {
		tcs := toolCallMap[r.ID]
		if tcs == nil {
			tcs = []HistoryToolCall{}
		}
		messages = append(messages, HistoryMessage{
			MessageID: r.ID,
			Role:      r.Role,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
			ToolCalls: tcs,
		})
	}
	return messages, nil
}

// DeleteConversation 删除对话及其消息、工具调用
// 在事务内显式级联删除，不依赖数据库外键行为
func (s *GormConversationStore) DeleteConversation(ctx context.Context, conversationID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msgIDs []string
		if err := tx.Model(&models.Message{}).
			Where("conversation_id = ?", conversationID).
			Pluck("id", &msgIDs).Error; err != nil {
			return err
		}
		if len(msgIDs) > 0 {
			if err := tx.Where("message_id IN ?", msgIDs).Delete(&models.ToolCall{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", conversationID).Delete(&models.Conversation{}).Error
	})
}

// touchConversation 刷新对话的更新时间，失败只记日志
func (s *GormConversationStore) touchConversation(ctx context.Context, conversationID string) {
	if err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error; err != nil {
		s.logger.Warn("更新对话时间失败: %v, conversation_id=%s", err, conversationID)
	}
}
