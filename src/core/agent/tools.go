package agent

import (
	"context"
	"fmt"

	openai "github.com/angrymiao/go-openai"
)

// Tool 引擎可调用的工具
type Tool interface {
	Name() string
	Description() string
	// Parameters 返回JSON Schema格式的参数定义
	Parameters() map[string]interface{}
	Execute(ctx context.Context, input map[string]interface{}) (string, error)
}

// ToolRegistry 工具注册表，按注册顺序暴露给引擎
type ToolRegistry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewToolRegistry 创建工具注册表
func NewToolRegistry(tools ...Tool) *ToolRegistry {
	r := &ToolRegistry{byName: make(map[string]Tool)}
	for _, t := range tools {
		r.tools = append(r.tools, t)
		r.byName[t.Name()] = t
	}
	return r
}

// Definitions 转换为OpenAI工具定义
func (r *ToolRegistry) Definitions() []openai.Tool {
	defs := make([]openai.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute 执行工具并把错误转换为文本结果
// 工具失败不中断引擎循环，错误文本交给模型自行处置。
func (r *ToolRegistry) Execute(ctx context.Context, name string, input map[string]interface{}) string {
	tool, ok := r.byName[name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
	result, err := tool.Execute(ctx, input)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %v", name, err)
	}
	return result
}

// stringArg 从工具入参中取字符串字段
func stringArg(input map[string]interface{}, key string) string {
	if v, ok := input[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
