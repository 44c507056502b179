package rag

import (
	"context"
	"fmt"

	openai "github.com/angrymiao/go-openai"
)

// EmbeddingGenerator 基于OpenAI接口的向量生成器
type EmbeddingGenerator struct {
	client *openai.Client
	model  string
}

// NewEmbeddingGenerator 创建向量生成器
func NewEmbeddingGenerator(client *openai.Client, model string) *EmbeddingGenerator {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &EmbeddingGenerator{client: client, model: model}
}

// GenerateEmbedding 对单条文本生成向量
func (g *EmbeddingGenerator) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(g.model),
	})
	if err != nil {
		return nil, fmt.Errorf("生成向量失败: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("向量接口返回空结果")
	}
	return resp.Data[0].Embedding, nil
}
