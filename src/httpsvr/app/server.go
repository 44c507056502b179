package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"macbook-agent-server/src/configs"
	"macbook-agent-server/src/core/agent"
	"macbook-agent-server/src/core/chat"
	"macbook-agent-server/src/core/middleware"
	"macbook-agent-server/src/core/rag"
	"macbook-agent-server/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AppService 对话应用服务
// 聚合HTTP入口：流式对话、会话管理、追问建议与知识库维护。
type AppService struct {
	logger      *utils.Logger
	config      *configs.Config
	store       chat.ConversationStore
	engine      agent.Engine
	guard       *chat.TurnGuard
	suggestions *SuggestionService
	ragClient   *rag.Client
}

// NewAppService 创建应用服务实例
func NewAppService(config *configs.Config, logger *utils.Logger, store chat.ConversationStore, engine agent.Engine, guard *chat.TurnGuard, suggestions *SuggestionService, ragClient *rag.Client) *AppService {
	return &AppService{
		logger:      logger,
		config:      config,
		store:       store,
		engine:      engine,
		guard:       guard,
		suggestions: suggestions,
		ragClient:   ragClient,
	}
}

// Start 注册路由
func (s *AppService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) {
	apiGroup.GET("/", s.handleRoot)
	apiGroup.GET("/health", s.handleHealth)

	authed := apiGroup.Group("", middleware.StaticTokenAuth(s.config))
	{
		authed.POST("/chat", s.handleChatStream)
		authed.POST("/conversations", s.handleCreateConversation)
		authed.GET("/conversations/:conversation_id/history", s.handleHistory)
		authed.DELETE("/conversations/:conversation_id", s.handleDeleteConversation)
		authed.GET("/conversations/:conversation_id/suggestions", s.handleSuggestions)
		authed.POST("/facts", s.handleAddFact)
	}

	s.logger.Info("对话服务路由注册完成")
}

func (s *AppService) handleRoot(c *gin.Context) {
	utils.Custom(c, http.StatusOK, gin.H{
		"message": "MacBook Air Chatbot API",
		"version": "1.0.0",
	})
}

func (s *AppService) handleHealth(c *gin.Context) {
	utils.Custom(c, http.StatusOK, gin.H{"status": "healthy"})
}

// handleChatStream 流式对话入口
// 生产与发送分离：生产者在独立goroutine里驱动引擎直到结束并负责
// 持久化，本处理器只做发送循环。客户端断开只会终止发送，不影响
// 生产者落库。
func (s *AppService) handleChatStream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	if req.ConversationID != "" {
		if _, err := uuid.Parse(req.ConversationID); err != nil {
			utils.Error(c, http.StatusBadRequest, "无效的会话ID格式")
			return
		}
	}

	// 持久化与推理不挂在请求上下文上，客户端断开不应中断它们
	ctx := context.Background()

	conversationID, err := s.store.CreateOrGetConversation(ctx, req.ConversationID)
	if err != nil {
		s.logger.Error("获取会话失败: %v", err)
		utils.Error(c, http.StatusInternalServerError, "获取会话失败")
		return
	}

	// 同一会话同时只允许一个进行中的轮次
	if !s.guard.Acquire(ctx, conversationID) {
		utils.Error(c, http.StatusConflict, "该会话已有进行中的回复")
		return
	}

	if _, err := s.store.SaveMessage(ctx, conversationID, "user", req.Message, ""); err != nil {
		s.guard.Release(ctx, conversationID)
		s.logger.Error("保存用户消息失败, conversation_id=%s: %v", conversationID, err)
		utils.Error(c, http.StatusInternalServerError, "保存消息失败")
		return
	}

	history, err := s.store.GetHistory(ctx, conversationID, s.config.Chat.HistoryLimit)
	if err != nil {
		// 历史加载失败不阻塞本轮对话，降级为无上下文
		s.logger.Warn("加载会话历史失败, conversation_id=%s: %v", conversationID, err)
		history = nil
	}
	agentHistory := make([]agent.Message, 0, len(history))
	for _, msg := range history {
		agentHistory = append(agentHistory, agent.Message{Role: msg.Role, Content: msg.Content})
	}

	sessionID := "chat_" + utils.GenerateRandomKeyWithNanoid(12)
	events, err := s.engine.StreamEvents(ctx, sessionID, req.Message, agentHistory)
	if err != nil {
		s.guard.Release(ctx, conversationID)
		s.logger.Error("启动推理引擎失败, conversation_id=%s: %v", conversationID, err)
		utils.Error(c, http.StatusInternalServerError, "启动推理失败")
		return
	}

	queue := chat.NewRelayQueue(s.config.Chat.QueueSize)
	producer := chat.NewStreamProducer(s.logger, s.store, queue, conversationID, chat.ProducerOptions{
		CheckpointChars:  s.config.Chat.CheckpointChars,
		ToolResultMaxLen: s.config.Chat.ToolResultMaxLen,
	})
	go producer.Run(events)

	// 轮次锁跟随生产者生命周期释放，而不是本请求返回时
	go func() {
		<-producer.Done()
		s.guard.Release(context.Background(), conversationID)
	}()

	s.deliverEvents(c, conversationID, queue, producer)
}

// deliverEvents SSE发送循环
// 队列出队带超时，超时时检查生产者是否已结束且队列已排空；
// 写失败说明客户端断开，仅终止发送循环。
func (s *AppService) deliverEvents(c *gin.Context, conversationID string, queue *chat.RelayQueue, producer *chat.StreamProducer) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	writeEvent := func(ev chat.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	// 首帧固定为会话ID
	if err := writeEvent(chat.NewConversationIDEvent(conversationID)); err != nil {
		s.logger.Warn("客户端已断开, conversation_id=%s", conversationID)
		return
	}

	poll := time.Duration(s.config.Chat.DeliveryPollMS) * time.Millisecond
	if poll <= 0 {
		poll = time.Second
	}

	clientGone := false
deliver:
	for {
		ev, ok := queue.Get(poll)
		if !ok {
			select {
			case <-producer.Done():
				if queue.Len() == 0 {
					break deliver
				}
			default:
			}
			continue
		}

		if err := writeEvent(ev); err != nil {
			s.logger.Warn("发送事件失败，客户端可能已断开, conversation_id=%s: %v", conversationID, err)
			clientGone = true
			break
		}
		if ev.Terminal() {
			break
		}
	}

	// 收尾补发done，失败忽略
	if !clientGone {
		_ = writeEvent(chat.NewDoneEvent())
	}
}

func (s *AppService) handleCreateConversation(c *gin.Context) {
	conversationID, err := s.store.CreateOrGetConversation(c.Request.Context(), "")
	if err != nil {
		s.logger.Error("创建会话失败: %v", err)
		utils.Error(c, http.StatusInternalServerError, "创建会话失败")
		return
	}
	utils.Custom(c, http.StatusOK, CreateConversationResponse{ConversationID: conversationID})
}

func (s *AppService) handleHistory(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if _, err := uuid.Parse(conversationID); err != nil {
		utils.Error(c, http.StatusBadRequest, "无效的会话ID格式")
		return
	}

	messages, err := s.store.GetHistory(c.Request.Context(), conversationID, 100)
	if err != nil {
		s.logger.Error("查询会话历史失败, conversation_id=%s: %v", conversationID, err)
		utils.Error(c, http.StatusInternalServerError, "查询会话历史失败")
		return
	}

	pp := utils.ParsePageParams(c, 1, 100, 100)
	start, end := utils.ComputeSliceRange(len(messages), pp.Page, pp.PageSize)
	utils.Custom(c, http.StatusOK, HistoryResponse{
		Messages: messages[start:end],
		Total:    len(messages),
		Page:     pp.Page,
		PageSize: pp.PageSize,
	})
}

func (s *AppService) handleDeleteConversation(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if _, err := uuid.Parse(conversationID); err != nil {
		utils.Error(c, http.StatusBadRequest, "无效的会话ID格式")
		return
	}

	if err := s.store.DeleteConversation(c.Request.Context(), conversationID); err != nil {
		s.logger.Error("删除会话失败, conversation_id=%s: %v", conversationID, err)
		utils.Error(c, http.StatusInternalServerError, "删除会话失败")
		return
	}
	utils.Success(c, gin.H{"success": true})
}

func (s *AppService) handleSuggestions(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if _, err := uuid.Parse(conversationID); err != nil {
		utils.Error(c, http.StatusBadRequest, "无效的会话ID格式")
		return
	}

	history, err := s.store.GetHistory(c.Request.Context(), conversationID, 3)
	if err != nil {
		s.logger.Warn("加载会话历史失败, conversation_id=%s: %v", conversationID, err)
		history = nil
	}

	suggestions := s.suggestions.Generate(c.Request.Context(), conversationID, history)
	utils.Custom(c, http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

// handleAddFact 向知识库添加事实条目，供管理端维护资料使用
func (s *AppService) handleAddFact(c *gin.Context) {
	var req AddFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	if err := s.ragClient.AddFact(c.Request.Context(), req.Content, req.Metadata); err != nil {
		s.logger.Error("添加事实条目失败: %v", err)
		utils.Error(c, http.StatusInternalServerError, "添加事实条目失败")
		return
	}
	utils.Success(c, nil)
}
