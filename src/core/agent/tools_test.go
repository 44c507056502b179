package agent

import (
	"context"
	"fmt"
	"testing"
)

type stubTool struct {
	name   string
	result string
	err    error
	gotCtx bool
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return "stub" }
func (t *stubTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (t *stubTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	t.gotCtx = ctx != nil
	return t.result, t.err
}

func TestRegistryExecute(t *testing.T) {
	ok := &stubTool{name: "ok_tool", result: "done"}
	bad := &stubTool{name: "bad_tool", err: fmt.Errorf("boom")}
	registry := NewToolRegistry(ok, bad)

	if got := registry.Execute(context.Background(), "ok_tool", nil); got != "done" {
		t.Errorf("Execute(ok_tool) = %q", got)
	}
	if !ok.gotCtx {
		t.Errorf("工具未收到context")
	}

	// 工具错误转为文本，不向上传播
	if got := registry.Execute(context.Background(), "bad_tool", nil); got != "Error executing bad_tool: boom" {
		t.Errorf("Execute(bad_tool) = %q", got)
	}
	if got := registry.Execute(context.Background(), "missing", nil); got != `Error: unknown tool "missing"` {
		t.Errorf("Execute(missing) = %q", got)
	}
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	registry := NewToolRegistry(
		&stubTool{name: "web_search"},
		&stubTool{name: "retrieve_macbook_facts"},
	)

	defs := registry.Definitions()
	if len(defs) != 2 {
		t.Fatalf("定义数 = %d", len(defs))
	}
	if defs[0].Function.Name != "web_search" || defs[1].Function.Name != "retrieve_macbook_facts" {
		t.Errorf("定义顺序应与注册顺序一致: %s, %s", defs[0].Function.Name, defs[1].Function.Name)
	}
}

func TestStringArg(t *testing.T) {
	input := map[string]interface{}{"query": "M4", "count": 5}
	if got := stringArg(input, "query"); got != "M4" {
		t.Errorf("stringArg(query) = %q", got)
	}
	if got := stringArg(input, "count"); got != "" {
		t.Errorf("非字符串字段应返回空, got %q", got)
	}
	if got := stringArg(input, "missing"); got != "" {
		t.Errorf("缺失字段应返回空, got %q", got)
	}
}
