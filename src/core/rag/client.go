package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"macbook-agent-server/src/configs"
	"macbook-agent-server/src/core/utils"
	"macbook-agent-server/src/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document 一条检索结果
type Document struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float64                `json:"score"`
}

// Client 知识库检索客户端
// 事实条目连同向量存在fact_documents表里，检索时把全表向量读入
// 内存做余弦相似度。知识库是小而精的产品资料集，这一规模下无需
// 专门的向量索引。
type Client struct {
	db       *gorm.DB
	embedder *EmbeddingGenerator
	cfg      configs.RAGConfig
	logger   *utils.Logger
}

// NewClient 创建检索客户端
func NewClient(db *gorm.DB, embedder *EmbeddingGenerator, cfg configs.RAGConfig, logger *utils.Logger) *Client {
	return &Client{db: db, embedder: embedder, cfg: cfg, logger: logger}
}

// AddFact 添加事实条目，生成向量后落库
func (c *Client) AddFact(ctx context.Context, content string, metadata map[string]interface{}) error {
	embedding, err := c.embedder.GenerateEmbedding(ctx, content)
	if err != nil {
		return err
	}

	embJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("序列化向量失败: %v", err)
	}
	var metaJSON datatypes.JSON
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("序列化元数据失败: %v", err)
		}
		metaJSON = datatypes.JSON(data)
	}

	doc := models.FactDocument{
		Content:   content,
		Metadata:  metaJSON,
		Embedding: datatypes.JSON(embJSON),
	}
	return c.db.WithContext(ctx).Create(&doc).Error
}

// SearchSimilar 向量相似度检索，返回按相似度降序的前TopK条
func (c *Client) SearchSimilar(ctx context.Context, query string) ([]Document, error) {
	queryEmbedding, err := c.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	qv := make([]float64, len(queryEmbedding))
	for i, v := range queryEmbedding {
		qv[i] = float64(v)
	}

	var rows []models.FactDocument
	if err := c.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		var embedding []float64
		if err := json.Unmarshal(row.Embedding, &embedding); err != nil {
			c.logger.Warn("解析事实向量失败: %v, fact_id=%d", err, row.ID)
			continue
		}
		score := cosineSimilarity(qv, embedding)
		if score < c.cfg.Threshold {
			continue
		}
		metadata := make(map[string]interface{})
		if len(row.Metadata) > 0 {
			_ = json.Unmarshal(row.Metadata, &metadata)
		}
		docs = append(docs, Document{
			Content:  row.Content,
			Metadata: metadata,
			Score:    score,
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	topK := c.cfg.TopK
	if topK > 0 && len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

// FormatContext 把检索结果格式化为带来源编号的上下文文本
func FormatContext(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		part := fmt.Sprintf("[Source %d]", i+1)
		if source, ok := doc.Metadata["source"].(string); ok && source != "" {
			part += fmt.Sprintf(" Source: %s", source)
		}
		part += "\n" + doc.Content
		parts = append(parts, part)
	}

	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n\n" + p
	}
	return out
}

// cosineSimilarity 余弦相似度，维度不一致或零向量时返回0
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
