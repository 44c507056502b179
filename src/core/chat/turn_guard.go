package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"macbook-agent-server/src/configs"
	"macbook-agent-server/src/core/utils"

	"github.com/redis/go-redis/v9"
)

// TurnGuard 对话轮次锁
// 设计假定同一对话同时只有一个进行中的轮次；这里用Redis SETNX
// 把该假定变成约束，多实例部署下同样生效。未配置Redis时退化为
// 进程内的本地锁。TTL防止生产者异常退出后锁泄漏。
type TurnGuard struct {
	client  *redis.Client
	service string
	ttl     time.Duration
	logger  *utils.Logger

	mu    sync.Mutex
	local map[string]time.Time
}

// NewTurnGuard 创建轮次锁，cfg.Addr为空时使用本地锁
func NewTurnGuard(cfg configs.RedisConfig, ttl time.Duration, logger *utils.Logger) *TurnGuard {
	g := &TurnGuard{
		service: cfg.Service,
		ttl:     ttl,
		logger:  logger,
		local:   make(map[string]time.Time),
	}
	if g.service == "" {
		g.service = "agent"
	}
	if g.ttl <= 0 {
		g.ttl = 5 * time.Minute
	}

	if cfg.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis连接失败，轮次锁退化为本地模式: %v", err)
		} else {
			g.client = client
		}
	}
	return g
}

func (g *TurnGuard) key(conversationID string) string {
	return fmt.Sprintf("%s:turn:%s", g.service, conversationID)
}

// Acquire 尝试获取对话的轮次锁，已有进行中的轮次时返回false
func (g *TurnGuard) Acquire(ctx context.Context, conversationID string) bool {
	if g.client != nil {
		ok, err := g.client.SetNX(ctx, g.key(conversationID), 1, g.ttl).Result()
		if err != nil {
			g.logger.Warn("获取轮次锁失败，放行请求: %v", err)
			return true
		}
		return ok
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if expire, ok := g.local[conversationID]; ok && time.Now().Before(expire) {
		return false
	}
	g.local[conversationID] = time.Now().Add(g.ttl)
	return true
}

// Release 释放对话的轮次锁
func (g *TurnGuard) Release(ctx context.Context, conversationID string) {
	if g.client != nil {
		if err := g.client.Del(ctx, g.key(conversationID)).Err(); err != nil {
			g.logger.Warn("释放轮次锁失败: %v", err)
		}
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.local, conversationID)
}
