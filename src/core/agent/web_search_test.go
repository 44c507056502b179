package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"macbook-agent-server/src/configs"
	"macbook-agent-server/src/core/utils"
)

func newSearchTestLogger(t *testing.T) *utils.Logger {
	t.Helper()
	logger, err := utils.NewLogger("ERROR", t.TempDir(), "test.log")
	if err != nil {
		t.Fatalf("创建日志器失败: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestWebSearchFormatsResults(t *testing.T) {
	var gotToken, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"web": map[string]interface{}{
				"results": []map[string]string{
					{"title": "MacBook Air M4 Review", "url": "https://example.com/review", "description": "In-depth review."},
					{"title": "M4 Prices", "url": "https://example.com/prices", "description": "Current prices."},
				},
			},
		})
	}))
	defer server.Close()

	tool := NewWebSearchTool(configs.SearchConfig{
		APIKey:     "test-key",
		Endpoint:   server.URL,
		MaxResults: 5,
	}, newSearchTestLogger(t))

	out, err := tool.Execute(context.Background(), map[string]interface{}{"query": "MacBook Air M4"})
	if err != nil {
		t.Fatalf("Execute失败: %v", err)
	}
	if gotToken != "test-key" {
		t.Errorf("认证头 = %q", gotToken)
	}
	if gotQuery != "MacBook Air M4" {
		t.Errorf("查询参数 = %q", gotQuery)
	}
	if !strings.Contains(out, "1. MacBook Air M4 Review") || !strings.Contains(out, "https://example.com/prices") {
		t.Errorf("格式化结果 = %q", out)
	}
}

func TestWebSearchEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"web": map[string]interface{}{"results": []interface{}{}}})
	}))
	defer server.Close()

	tool := NewWebSearchTool(configs.SearchConfig{Endpoint: server.URL}, newSearchTestLogger(t))
	out, err := tool.Execute(context.Background(), map[string]interface{}{"query": "nothing"})
	if err != nil {
		t.Fatalf("Execute失败: %v", err)
	}
	if out != "No search results found." {
		t.Errorf("空结果输出 = %q", out)
	}
}

func TestWebSearchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	tool := NewWebSearchTool(configs.SearchConfig{Endpoint: server.URL}, newSearchTestLogger(t))
	if _, err := tool.Execute(context.Background(), map[string]interface{}{"query": "x"}); err == nil {
		t.Errorf("上游错误应返回error")
	}
}

func TestWebSearchRejectsEmptyQuery(t *testing.T) {
	tool := NewWebSearchTool(configs.SearchConfig{Endpoint: "http://unused"}, newSearchTestLogger(t))
	if _, err := tool.Execute(context.Background(), map[string]interface{}{"query": "  "}); err == nil {
		t.Errorf("空搜索词应返回error")
	}
}
