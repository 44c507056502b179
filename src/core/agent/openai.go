package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"macbook-agent-server/src/configs"
	"macbook-agent-server/src/core/utils"

	openai "github.com/angrymiao/go-openai"
)

// 默认系统提示词，配置未覆盖时使用
const defaultSystemPrompt = `You are a helpful and knowledgeable assistant specialized in answering questions about the MacBook Air.

Your primary goal is to provide accurate, helpful, and up-to-date information about MacBook Air products, specially the latest model (M4).

Guidelines:
1. Use the retrieve_macbook_facts tool to access stored knowledge about MacBook Air specifications, features, and general information.
2. Use the web_search tool to find current information such as prices, availability, latest news, recent reviews and promotions.
3. When you have information from both sources, combine them to provide comprehensive answers and cite your sources.
4. When mentioning prices or information found via web_search, include the source link in markdown format.
5. If information conflicts between sources, prioritize the most recent web results for current data, but use stored facts for historical or technical specifications.
6. By default questions refer to the latest model (M4); rewrite retrieval queries to fit a specific model when the user asks about one.
7. Be conversational and helpful, but always accurate. If you're unsure about something, say so rather than guessing.`

// OpenAIEngine 基于OpenAI对话接口的推理引擎
// 流式驱动模型输出，循环执行工具调用并把结果回填上下文，
// 直到模型给出不含工具调用的最终回复。
type OpenAIEngine struct {
	client        *openai.Client
	cfg           configs.LLMConfig
	registry      *ToolRegistry
	logger        *utils.Logger
	systemPrompt  string
	maxToolRounds int
}

// NewOpenAIEngine 创建引擎实例
func NewOpenAIEngine(cfg configs.LLMConfig, systemPrompt string, maxToolRounds int, registry *ToolRegistry, logger *utils.Logger) *OpenAIEngine {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	if maxToolRounds <= 0 {
		maxToolRounds = 5
	}
	return &OpenAIEngine{
		client:        openai.NewClientWithConfig(clientCfg),
		cfg:           cfg,
		registry:      registry,
		logger:        logger,
		systemPrompt:  systemPrompt,
		maxToolRounds: maxToolRounds,
	}
}

// StreamEvents 启动一轮推理，事件按顺序写入返回的通道
func (e *OpenAIEngine) StreamEvents(ctx context.Context, sessionID, userText string, history []Message) (<-chan Event, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, fmt.Errorf("用户输入为空")
	}

	msgs := e.buildMessages(userText, history)
	out := make(chan Event, 16)
	go e.run(ctx, sessionID, msgs, out)
	return out, nil
}

// buildMessages 组装上下文：系统提示词 + 历史 + 当前输入
// 历史末尾若已包含当前这条用户消息则跳过，避免重复
func (e *OpenAIEngine) buildMessages(userText string, history []Message) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: e.systemPrompt,
	})

	for i, h := range history {
		if i == len(history)-1 && h.Role == "user" && h.Content == userText {
			continue
		}
		role := openai.ChatMessageRoleUser
		if h.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}

	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})
	return msgs
}

// accumulatedToolCall 流式分片拼装出的完整工具调用
type accumulatedToolCall struct {
	id   string
	name string
	args string
}

func (e *OpenAIEngine) run(ctx context.Context, sessionID string, msgs []openai.ChatCompletionMessage, out chan<- Event) {
	defer close(out)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("引擎发生panic, session=%s: %v", sessionID, r)
			out <- Event{Type: EventError, Err: fmt.Sprintf("engine panic: %v", r)}
		}
	}()

	for round := 0; round < e.maxToolRounds; round++ {
		req := openai.ChatCompletionRequest{
			Model:       e.cfg.ModelName,
			Messages:    msgs,
			Temperature: e.cfg.Temperature,
			MaxTokens:   e.cfg.MaxTokens,
			Stream:      true,
		}
		if defs := e.registry.Definitions(); len(defs) > 0 {
			req.Tools = defs
		}

		stream, err := e.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			e.logger.Error("创建对话流失败, session=%s: %v", sessionID, err)
			out <- Event{Type: EventError, Err: fmt.Sprintf("chat completion failed: %v", err)}
			return
		}

		text, calls, err := e.consumeStream(stream, out)
		stream.Close()
		if err != nil {
			e.logger.Error("读取对话流失败, session=%s: %v", sessionID, err)
			out <- Event{Type: EventError, Err: fmt.Sprintf("stream read failed: %v", err)}
			return
		}

		if len(calls) == 0 {
			// 没有新的工具调用，本次流式文本即为最终回复
			out <- Event{Type: EventFinal, Content: text}
			return
		}

		// 把带工具调用的assistant消息加入上下文
		assistantMsg := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: text,
		}
		for _, call := range calls {
			assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, openai.ToolCall{
				ID:   call.id,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.name,
					Arguments: call.args,
				},
			})
		}
		msgs = append(msgs, assistantMsg)

		// 依次执行工具调用，结果回填上下文
		for _, call := range calls {
			input := make(map[string]interface{})
			if call.args != "" {
				if err := json.Unmarshal([]byte(call.args), &input); err != nil {
					e.logger.Warn("解析工具入参失败, tool=%s: %v", call.name, err)
					input = map[string]interface{}{"raw": call.args}
				}
			}

			out <- Event{Type: EventToolCall, Tool: call.name, Input: input}
			result := e.registry.Execute(ctx, call.name, input)
			out <- Event{Type: EventToolResult, Tool: call.name, Input: input, Result: result}

			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.id,
			})
		}
	}

	e.logger.Warn("工具调用轮数超出上限, session=%s", sessionID)
	out <- Event{Type: EventError, Err: "tool call round limit exceeded"}
}

// consumeStream 消费一次流式响应：转发内容片段，拼装工具调用分片
func (e *OpenAIEngine) consumeStream(stream *openai.ChatCompletionStream, out chan<- Event) (string, []*accumulatedToolCall, error) {
	var sb strings.Builder
	byIndex := make(map[int]*accumulatedToolCall)
	var order []*accumulatedToolCall

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			sb.WriteString(delta.Content)
			out <- Event{Type: EventContentDelta, Content: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := byIndex[idx]
			if !ok {
				acc = &accumulatedToolCall{}
				byIndex[idx] = acc
				order = append(order, acc)
			}
			if tc.ID != "" {
				acc.id = tc.ID
			}
			if tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			acc.args += tc.Function.Arguments
		}
	}

	return sb.String(), order, nil
}
