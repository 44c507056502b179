package utils

import (
	"testing"
)

func TestCanonicalJSONHashStableAcrossKeyOrder(t *testing.T) {
	a := map[string]interface{}{"query": "M4 price", "count": 5}
	b := map[string]interface{}{"count": 5, "query": "M4 price"}

	if CanonicalJSONHash(a) != CanonicalJSONHash(b) {
		t.Errorf("同一内容不同构造顺序的map哈希不一致")
	}
}

func TestCanonicalJSONHashDistinguishesValues(t *testing.T) {
	cases := []struct {
		name string
		a, b map[string]interface{}
	}{
		{
			name: "不同取值",
			a:    map[string]interface{}{"query": "M4"},
			b:    map[string]interface{}{"query": "M3"},
		},
		{
			name: "不同键",
			a:    map[string]interface{}{"query": "M4"},
			b:    map[string]interface{}{"q": "M4"},
		},
		{
			name: "嵌套差异",
			a:    map[string]interface{}{"filter": map[string]interface{}{"year": 2024}},
			b:    map[string]interface{}{"filter": map[string]interface{}{"year": 2025}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if CanonicalJSONHash(tc.a) == CanonicalJSONHash(tc.b) {
				t.Errorf("不同输入产生了相同哈希: %v vs %v", tc.a, tc.b)
			}
		})
	}
}

func TestCanonicalJSONHashNilAndEmpty(t *testing.T) {
	var empty map[string]interface{}
	if CanonicalJSONHash(empty) == "" {
		t.Errorf("nil map应产生非空哈希")
	}
	if CanonicalJSONHash(map[string]interface{}{}) == "" {
		t.Errorf("空map应产生非空哈希")
	}
}
