package app

import (
	"testing"
)

func TestParseSuggestionLines(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "纯文本行",
			in:   "What is the battery life of the M4?\nHow much does it weigh?\nDoes it support external displays?",
			want: []string{
				"What is the battery life of the M4?",
				"How much does it weigh?",
				"Does it support external displays?",
			},
		},
		{
			name: "带编号与项目符号",
			in:   "1. What is the battery life?\n- How much does it weigh?\n* Does it have a fan inside?",
			want: []string{
				"What is the battery life?",
				"How much does it weigh?",
				"Does it have a fan inside?",
			},
		},
		{
			name: "过短的行被过滤",
			in:   "ok\nWhat colors are available for it?\n\nHow fast is the M4 chip really?",
			want: []string{
				"What colors are available for it?",
				"How fast is the M4 chip really?",
			},
		},
		{
			name: "最多取三条",
			in:   "What is question one here?\nWhat is question two here?\nWhat is question three here?\nWhat is question four here?",
			want: []string{
				"What is question one here?",
				"What is question two here?",
				"What is question three here?",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseSuggestionLines(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("条数 = %d, 期望 %d: %v", len(got), len(tc.want), got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("第%d条 = %q, 期望 %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}
