package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"macbook-agent-server/src/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*GormConversationStore, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&models.Conversation{}, &models.Message{}, &models.ToolCall{}); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}
	return NewGormConversationStore(db, newTestLogger(t)), db
}

func TestCreateOrGetConversation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// 空ID生成新会话
	id, err := store.CreateOrGetConversation(ctx, "")
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("生成的会话ID不是UUID: %s", id)
	}

	// 已存在的ID直接返回，不重复创建
	got, err := store.CreateOrGetConversation(ctx, id)
	if err != nil {
		t.Fatalf("获取会话失败: %v", err)
	}
	if got != id {
		t.Errorf("返回的会话ID = %s, 期望 %s", got, id)
	}

	// 未知ID按该ID创建
	unknown := uuid.NewString()
	got, err = store.CreateOrGetConversation(ctx, unknown)
	if err != nil {
		t.Fatalf("按指定ID创建会话失败: %v", err)
	}
	if got != unknown {
		t.Errorf("返回的会话ID = %s, 期望 %s", got, unknown)
	}
}

func TestSaveMessageUpdateInPlace(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	convID, _ := store.CreateOrGetConversation(ctx, "")

	msgID, err := store.SaveMessage(ctx, convID, "assistant", "partial", "")
	if err != nil {
		t.Fatalf("插入消息失败: %v", err)
	}

	// 原地更新不产生新行
	got, err := store.SaveMessage(ctx, convID, "assistant", "partial plus more", msgID)
	if err != nil {
		t.Fatalf("更新消息失败: %v", err)
	}
	if got != msgID {
		t.Errorf("更新返回的消息ID = %s, 期望 %s", got, msgID)
	}

	var count int64
	db.Model(&models.Message{}).Where("conversation_id = ?", convID).Count(&count)
	if count != 1 {
		t.Errorf("消息行数 = %d, 期望原地更新后仍为1", count)
	}
	var row models.Message
	db.First(&row, "id = ?", msgID)
	if row.Content != "partial plus more" {
		t.Errorf("更新后内容 = %q", row.Content)
	}

	// 更新不存在的消息返回错误
	if _, err := store.SaveMessage(ctx, convID, "assistant", "x", uuid.NewString()); err == nil {
		t.Errorf("更新不存在的消息应返回错误")
	}
}

func TestGetHistoryWindowAndOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	convID, _ := store.CreateOrGetConversation(ctx, "")

	// 5轮对话，共10条消息
	for i := 1; i <= 5; i++ {
		if _, err := store.SaveMessage(ctx, convID, "user", fmt.Sprintf("question %d", i), ""); err != nil {
			t.Fatalf("保存用户消息失败: %v", err)
		}
		msgID, err := store.SaveMessage(ctx, convID, "assistant", fmt.Sprintf("answer %d", i), "")
		if err != nil {
			t.Fatalf("保存助手消息失败: %v", err)
		}
		if i == 5 {
			if _, err := store.SaveToolCall(ctx, msgID, "web_search",
				map[string]interface{}{"query": fmt.Sprintf("q%d", i)}, "search result"); err != nil {
				t.Fatalf("保存工具调用失败: %v", err)
			}
		}
	}

	history, err := store.GetHistory(ctx, convID, 3)
	if err != nil {
		t.Fatalf("查询历史失败: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("历史条数 = %d, 期望 3", len(history))
	}

	// 最近3条，从旧到新
	want := []string{"answer 4", "question 5", "answer 5"}
	for i, w := range want {
		if history[i].Content != w {
			t.Errorf("history[%d].Content = %q, 期望 %q", i, history[i].Content, w)
		}
	}

	// 工具调用挂载在对应消息上
	last := history[2]
	if len(last.ToolCalls) != 1 {
		t.Fatalf("最后一条消息的工具调用数 = %d, 期望 1", len(last.ToolCalls))
	}
	if last.ToolCalls[0].ToolName != "web_search" {
		t.Errorf("工具名 = %s", last.ToolCalls[0].ToolName)
	}
	if last.ToolCalls[0].Input["query"] != "q5" {
		t.Errorf("工具入参 = %v", last.ToolCalls[0].Input)
	}

	// 无工具调用的消息返回空切片而非nil
	if history[0].ToolCalls == nil {
		t.Errorf("无工具调用时应返回空切片")
	}
}

func TestGetHistoryEmptyConversation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	convID, _ := store.CreateOrGetConversation(ctx, "")

	history, err := store.GetHistory(ctx, convID, 10)
	if err != nil {
		t.Fatalf("查询历史失败: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Errorf("空会话历史 = %v, 期望空切片", history)
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	convID, _ := store.CreateOrGetConversation(ctx, "")

	msgID, _ := store.SaveMessage(ctx, convID, "assistant", "answer", "")
	if _, err := store.SaveToolCall(ctx, msgID, "web_search",
		map[string]interface{}{"query": "q"}, "res"); err != nil {
		t.Fatalf("保存工具调用失败: %v", err)
	}

	// 另一会话的数据不受影响
	otherID, _ := store.CreateOrGetConversation(ctx, "")
	store.SaveMessage(ctx, otherID, "user", "keep me", "")

	if err := store.DeleteConversation(ctx, convID); err != nil {
		t.Fatalf("删除会话失败: %v", err)
	}

	var convCount, msgCount, tcCount int64
	db.Model(&models.Conversation{}).Where("id = ?", convID).Count(&convCount)
	db.Model(&models.Message{}).Where("conversation_id = ?", convID).Count(&msgCount)
	db.Model(&models.ToolCall{}).Where("message_id = ?", msgID).Count(&tcCount)
	if convCount != 0 || msgCount != 0 || tcCount != 0 {
		t.Errorf("级联删除不完整: conv=%d msg=%d tc=%d", convCount, msgCount, tcCount)
	}

	var otherCount int64
	db.Model(&models.Message{}).Where("conversation_id = ?", otherID).Count(&otherCount)
	if otherCount != 1 {
		t.Errorf("其他会话的消息被误删")
	}
}
