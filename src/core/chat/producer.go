package chat

import (
	"context"
	"fmt"

	"macbook-agent-server/src/core/agent"
	"macbook-agent-server/src/core/utils"
)

// ProducerOptions 生产者参数
type ProducerOptions struct {
	CheckpointChars  int // 增量落库的字符阈值
	ToolResultMaxLen int // 工具结果截断长度
}

// pendingToolCall 本轮内观察到的工具调用，result到达前视为未完成
type pendingToolCall struct {
	tool     string
	input    map[string]interface{}
	result   string
	resolved bool
}

// StreamProducer 流式生产者
// 独立于客户端连接，把引擎事件流驱动到结束：一边把事件转发到
// RelayQueue（尽力而为，队列满则丢弃），一边增量持久化部分回复
// 与已完成的工具调用。客户端断开不会中止生产者。
type StreamProducer struct {
	logger         *utils.Logger
	store          ConversationStore
	queue          *RelayQueue
	opts           ProducerOptions
	conversationID string

	done chan struct{}

	// 以下状态仅在Run的事件循环内访问，单线程无须加锁
	fullResponse       string
	assistantMessageID string
	lastSaveLen        int
	pending            []*pendingToolCall
	tracker            *DedupTracker
}

// NewStreamProducer 创建生产者实例
func NewStreamProducer(logger *utils.Logger, store ConversationStore, queue *RelayQueue, conversationID string, opts ProducerOptions) *StreamProducer {
	if opts.CheckpointChars <= 0 {
		opts.CheckpointChars = 100
	}
	if opts.ToolResultMaxLen <= 0 {
		opts.ToolResultMaxLen = 500
	}
	return &StreamProducer{
		logger:         logger,
		store:          store,
		queue:          queue,
		opts:           opts,
		conversationID: conversationID,
		done:           make(chan struct{}),
		tracker:        NewDedupTracker(),
	}
}

// Done 生产者完成信号，事件流处理结束（含失败）后关闭
func (p *StreamProducer) Done() <-chan struct{} {
	return p.done
}

// Run 消费引擎事件流直到终止事件，通常以 go p.Run(events) 启动
// 任何panic都会被转换为错误事件加部分内容保存，不会终止进程。
func (p *StreamProducer) Run(events <-chan agent.Event) {
	ctx := context.Background()

	defer close(p.done)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("生产者发生panic: %v", r)
			p.savePartial(ctx)
			p.queue.TryPut(NewErrorEvent(fmt.Sprintf("internal error: %v", r)))
		}
	}()

	for ev := range events {
		switch ev.Type {
		case agent.EventContentDelta:
			if ev.Content == "" {
				continue
			}
			p.fullResponse += ev.Content
			p.queue.TryPut(NewContentDeltaEvent(ev.Content))

			if p.assistantMessageID == "" {
				// 首个内容片段：创建助手消息，并补存此前已完成的工具调用
				id, err := p.store.SaveMessage(ctx, p.conversationID, "assistant", p.fullResponse, "")
				if err != nil {
					p.logger.Warn("创建助手消息失败，下个检查点重试: %v", err)
					continue
				}
				p.assistantMessageID = id
				p.lastSaveLen = len(p.fullResponse)
				p.flushToolCalls(ctx)
			} else if len(p.fullResponse)-p.lastSaveLen >= p.opts.CheckpointChars {
				if _, err := p.store.SaveMessage(ctx, p.conversationID, "assistant", p.fullResponse, p.assistantMessageID); err != nil {
					p.logger.Warn("增量保存失败，下个检查点重试: %v", err)
				} else {
					p.lastSaveLen = len(p.fullResponse)
				}
				p.flushToolCalls(ctx)
			}

		case agent.EventToolCall:
			p.pending = append(p.pending, &pendingToolCall{tool: ev.Tool, input: ev.Input})
			p.queue.TryPut(NewToolCallEvent(ev.Tool, ev.Input))

		case agent.EventToolResult:
			result := truncateString(ev.Result, p.opts.ToolResultMaxLen)
			// 绑定到最早一个未完成的同名调用
			for _, tc := range p.pending {
				if tc.tool == ev.Tool && !tc.resolved {
					tc.result = result
					tc.resolved = true
					break
				}
			}
			// 助手消息已存在时立即落库，否则等首个内容片段时补存
			if p.assistantMessageID != "" {
				p.flushToolCalls(ctx)
			}
			p.queue.TryPut(NewToolResultEvent(ev.Tool, result))

		case agent.EventFinal:
			p.finishFinal(ctx, ev.Content)
			return

		case agent.EventError:
			p.finishError(ctx, ev.Err)
			return
		}
	}

	// 引擎通道在终止事件前关闭，按已有内容收尾
	p.logger.Warn("引擎事件流意外结束, conversation_id=%s", p.conversationID)
	if p.fullResponse == "" {
		p.queue.TryPut(NewErrorEvent("engine stream ended unexpectedly"))
		return
	}
	p.finishFinal(ctx, p.fullResponse)
}

// finishFinal 处理引擎的最终完整回复
// 最终写是正确性兜底：即使所有增量写都失败了也必须尝试。
func (p *StreamProducer) finishFinal(ctx context.Context, final string) {
	if final != "" {
		// 最终回复覆盖所有增量片段
		p.fullResponse = final
	}
	p.queue.TryPut(NewContentEvent(p.fullResponse))

	if p.assistantMessageID == "" {
		id, err := p.store.SaveMessage(ctx, p.conversationID, "assistant", p.fullResponse, "")
		if err != nil {
			// 客户端仍会收到done，但本轮未完成落库，显式记录这一风险窗口
			p.logger.Error("保存最终回复失败, conversation_id=%s: %v", p.conversationID, err)
		} else {
			p.assistantMessageID = id
		}
	} else {
		if _, err := p.store.SaveMessage(ctx, p.conversationID, "assistant", p.fullResponse, p.assistantMessageID); err != nil {
			p.logger.Error("保存最终回复失败, conversation_id=%s: %v", p.conversationID, err)
		}
	}

	if p.assistantMessageID != "" {
		p.flushToolCalls(ctx)
	}

	p.queue.TryPut(NewDoneEvent())
	p.logger.Info("最终回复已保存, 长度: %d, conversation_id=%s", len(p.fullResponse), p.conversationID)
}

// finishError 处理引擎失败：尽力保存部分内容后推送错误事件
func (p *StreamProducer) finishError(ctx context.Context, message string) {
	p.logger.Error("引擎处理失败, conversation_id=%s: %s", p.conversationID, message)
	p.savePartial(ctx)
	p.queue.TryPut(NewErrorEvent(message))
}

// savePartial 尽力保存已累积的部分回复，失败只记日志
func (p *StreamProducer) savePartial(ctx context.Context) {
	if p.fullResponse == "" {
		return
	}
	if p.assistantMessageID == "" {
		id, err := p.store.SaveMessage(ctx, p.conversationID, "assistant", p.fullResponse, "")
		if err != nil {
			p.logger.Warn("保存部分回复失败: %v", err)
			return
		}
		p.assistantMessageID = id
	} else {
		if _, err := p.store.SaveMessage(ctx, p.conversationID, "assistant", p.fullResponse, p.assistantMessageID); err != nil {
			p.logger.Warn("保存部分回复失败: %v", err)
			return
		}
	}
	p.flushToolCalls(ctx)
}

// flushToolCalls 落库所有已完成且未提交的工具调用
// 写入成功才在去重集合中提交，失败的留到下次flush重试。
func (p *StreamProducer) flushToolCalls(ctx context.Context) {
	for _, tc := range p.pending {
		if !tc.resolved {
			continue
		}
		key := DedupKey(tc.tool, tc.input)
		if p.tracker.Seen(key) {
			continue
		}
		if _, err := p.store.SaveToolCall(ctx, p.assistantMessageID, tc.tool, tc.input, tc.result); err != nil {
			p.logger.Warn("保存工具调用失败，等待重试: %v, tool=%s", err, tc.tool)
			continue
		}
		p.tracker.Mark(key)
	}
}

// truncateString 按字符数截断，避免截断多字节字符
func truncateString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
