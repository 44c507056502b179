package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"macbook-agent-server/src/configs"
	"macbook-agent-server/src/core/utils"

	"github.com/go-resty/resty/v2"
)

// braveSearchResponse Brave Search接口响应（只取需要的字段）
type braveSearchResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// WebSearchTool 联网搜索工具，用于价格、新闻等时效性信息
type WebSearchTool struct {
	client *resty.Client
	cfg    configs.SearchConfig
	logger *utils.Logger
}

// NewWebSearchTool 创建联网搜索工具
func NewWebSearchTool(cfg configs.SearchConfig, logger *utils.Logger) *WebSearchTool {
	return &WebSearchTool{
		client: resty.New(),
		cfg:    cfg,
		logger: logger,
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web for current information about MacBook Air, such as prices, availability, latest news, recent reviews and promotions. Results include source links."
}

func (t *WebSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query string",
			},
		},
		"required": []string{"query"},
	}
}

// Execute 调用Brave Search并格式化结果
func (t *WebSearchTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	query := strings.TrimSpace(stringArg(input, "query"))
	if query == "" {
		return "", fmt.Errorf("搜索词为空")
	}

	maxResults := t.cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	var result braveSearchResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("X-Subscription-Token", t.cfg.APIKey).
		SetQueryParam("q", query).
		SetQueryParam("count", strconv.Itoa(maxResults)).
		SetResult(&result).
		Get(t.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("搜索请求失败: %v", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("搜索接口返回 %d", resp.StatusCode())
	}

	if len(result.Web.Results) == 0 {
		return "No search results found.", nil
	}

	var sb strings.Builder
	for i, r := range result.Web.Results {
		if i >= maxResults {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Description)
	}
	t.logger.Debug("联网搜索完成, query=%q, results=%d", query, len(result.Web.Results))
	return strings.TrimSpace(sb.String()), nil
}
