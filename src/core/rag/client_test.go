package rag

import (
	"math"
	"strings"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "同向", a: []float64{1, 0}, b: []float64{2, 0}, want: 1},
		{name: "正交", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "反向", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "维度不一致", a: []float64{1, 0}, b: []float64{1}, want: 0},
		{name: "零向量", a: []float64{0, 0}, b: []float64{1, 1}, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %v, 期望 %v", got, tc.want)
			}
		})
	}
}

func TestFormatContext(t *testing.T) {
	if got := FormatContext(nil); got != "" {
		t.Errorf("空结果应返回空串, got %q", got)
	}

	docs := []Document{
		{Content: "The M4 chip has a 10-core CPU.", Metadata: map[string]interface{}{"source": "specs.md"}},
		{Content: "The display is 13.6 inches.", Metadata: map[string]interface{}{}},
	}
	out := FormatContext(docs)

	if !strings.Contains(out, "[Source 1] Source: specs.md") {
		t.Errorf("首条应带来源标注: %q", out)
	}
	if !strings.Contains(out, "[Source 2]\nThe display is 13.6 inches.") {
		t.Errorf("无source元数据时只保留编号: %q", out)
	}
	if !strings.Contains(out, "The M4 chip has a 10-core CPU.") {
		t.Errorf("缺少正文内容: %q", out)
	}
}
