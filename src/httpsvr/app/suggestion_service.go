package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"macbook-agent-server/src/configs"
	"macbook-agent-server/src/core/chat"
	"macbook-agent-server/src/core/utils"

	openai "github.com/angrymiao/go-openai"
	"github.com/redis/go-redis/v9"
)

// 建议缓存有效期，同一会话短时间内重复拉取直接命中缓存
const suggestionCacheTTL = 60 * time.Second

// SuggestionService 追问建议服务
// 无历史时返回配置的默认建议；有历史时让模型基于最近几条消息
// 生成三个简短的追问问题，失败时回退到默认建议。
type SuggestionService struct {
	client   *openai.Client
	model    string
	defaults []string
	rdb      *redis.Client
	service  string
	logger   *utils.Logger
}

// NewSuggestionService 创建建议服务，rdb为nil时不启用缓存
func NewSuggestionService(client *openai.Client, config *configs.Config, rdb *redis.Client, logger *utils.Logger) *SuggestionService {
	model := config.Chat.SuggestionModel
	if model == "" {
		model = config.LLM.ModelName
	}
	return &SuggestionService{
		client:   client,
		model:    model,
		defaults: config.Chat.Suggestions,
		rdb:      rdb,
		service:  config.RedisCache.Service,
		logger:   logger,
	}
}

// DefaultSuggestions 返回默认建议的副本
func (s *SuggestionService) DefaultSuggestions() []string {
	out := make([]string, len(s.defaults))
	copy(out, s.defaults)
	return out
}

// Generate 生成追问建议，任何失败都回退到默认建议
func (s *SuggestionService) Generate(ctx context.Context, conversationID string, history []chat.HistoryMessage) []string {
	if len(history) == 0 {
		return s.DefaultSuggestions()
	}

	if cached, ok := s.cacheGet(ctx, conversationID); ok {
		return cached
	}

	suggestions, err := s.generateFromHistory(ctx, history)
	if err != nil {
		s.logger.Warn("生成追问建议失败, conversation_id=%s: %v", conversationID, err)
		return s.DefaultSuggestions()
	}

	s.cacheSet(ctx, conversationID, suggestions)
	return suggestions
}

func (s *SuggestionService) generateFromHistory(ctx context.Context, history []chat.HistoryMessage) ([]string, error) {
	// 只取最近三条消息作为上下文，单条截断到200字符
	start := len(history) - 3
	if start < 0 {
		start = 0
	}
	var sb strings.Builder
	for _, msg := range history[start:] {
		role := "User"
		if msg.Role == "assistant" {
			role = "Assistant"
		}
		content := msg.Content
		if runes := []rune(content); len(runes) > 200 {
			content = string(runes[:200])
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, content)
	}

	prompt := fmt.Sprintf(`Based on this conversation about MacBook Air, suggest 3 short follow-up questions the user might want to ask next.

Conversation:
%s
Requirements:
- Each question must be a single short sentence (under 80 characters).
- Questions must be relevant to the conversation and about MacBook Air.
- Return exactly 3 questions, one per line, without numbering or bullets.`, sb.String())

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.7,
		MaxTokens:   200,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("建议接口返回空结果")
	}

	suggestions := parseSuggestionLines(resp.Choices[0].Message.Content)
	if len(suggestions) < 2 {
		return nil, fmt.Errorf("模型输出不足以构成建议: %q", resp.Choices[0].Message.Content)
	}
	return suggestions, nil
}

// parseSuggestionLines 逐行解析模型输出，剥掉编号和项目符号
func parseSuggestionLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-*) ")
		line = strings.TrimSpace(line)
		if len(line) < 10 {
			continue
		}
		out = append(out, line)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func (s *SuggestionService) cacheKey(conversationID string) string {
	return fmt.Sprintf("%s:suggestions:%s", s.service, conversationID)
}

func (s *SuggestionService) cacheGet(ctx context.Context, conversationID string) ([]string, bool) {
	if s.rdb == nil {
		return nil, false
	}
	data, err := s.rdb.Get(ctx, s.cacheKey(conversationID)).Result()
	if err != nil {
		return nil, false
	}
	var suggestions []string
	if err := json.Unmarshal([]byte(data), &suggestions); err != nil || len(suggestions) == 0 {
		return nil, false
	}
	return suggestions, true
}

func (s *SuggestionService) cacheSet(ctx context.Context, conversationID string, suggestions []string) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(suggestions)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, s.cacheKey(conversationID), data, suggestionCacheTTL).Err(); err != nil {
		s.logger.Warn("写入建议缓存失败, conversation_id=%s: %v", conversationID, err)
	}
}
