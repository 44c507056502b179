package agent

import (
	"context"
	"fmt"
	"strings"

	"macbook-agent-server/src/core/rag"
)

// FactRetriever 事实知识库检索接口
type FactRetriever interface {
	SearchSimilar(ctx context.Context, query string) ([]rag.Document, error)
}

// FactRetrievalTool 知识库检索工具
// 面向产品规格、历史信息等静态事实；时效性信息走web_search。
type FactRetrievalTool struct {
	retriever FactRetriever
}

// NewFactRetrievalTool 创建知识库检索工具
func NewFactRetrievalTool(retriever FactRetriever) *FactRetrievalTool {
	return &FactRetrievalTool{retriever: retriever}
}

func (t *FactRetrievalTool) Name() string { return "retrieve_macbook_facts" }

func (t *FactRetrievalTool) Description() string {
	return "Retrieve relevant facts about MacBook Air from the stored knowledge base: technical specifications, historical information, feature descriptions and comparison details. For current information (prices, availability, news), use the web_search tool instead."
}

func (t *FactRetrievalTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query to find relevant facts",
			},
		},
		"required": []string{"query"},
	}
}

// Execute 检索知识库并格式化为带来源的上下文
func (t *FactRetrievalTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	query := strings.TrimSpace(stringArg(input, "query"))
	if query == "" {
		return "", fmt.Errorf("检索词为空")
	}

	docs, err := t.retriever.SearchSimilar(ctx, query)
	if err != nil {
		return "", fmt.Errorf("检索知识库失败: %v", err)
	}
	if len(docs) == 0 {
		return "No relevant facts found in the knowledge base.", nil
	}

	return "Retrieved facts about MacBook Air:\n\n" + rag.FormatContext(docs), nil
}
