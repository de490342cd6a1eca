package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTranslations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		n    int
		want []string
	}{
		{
			name: "structured object",
			raw:  `{"translations": ["一", "二"]}`,
			n:    2,
			want: []string{"一", "二"},
		},
		{
			name: "fenced with chatter",
			raw:  "Sure! Here you go:\n```json\n{\"translations\": [\"一\", \"二\"]}\n```\nHope it helps.",
			n:    2,
			want: []string{"一", "二"},
		},
		{
			name: "bare array padded",
			raw:  `["一"]`,
			n:    3,
			want: []string{"一", "", ""},
		},
		{
			name: "excess truncated",
			raw:  `{"translations": ["一", "二", "三"]}`,
			n:    2,
			want: []string{"一", "二"},
		},
		{
			name: "non string items",
			raw:  `{"translations": ["一", 2, null]}`,
			n:    3,
			want: []string{"一", "", ""},
		},
		{
			name: "object without translations",
			raw:  `{"result": ["一"]}`,
			n:    1,
			want: []string{""},
		},
		{
			name: "broken json falls back to literals",
			raw:  `{"translations": ["一", "带\"引号\"的句子", "三",]}`,
			n:    3,
			want: []string{"一", `带"引号"的句子`, "三"},
		},
		{
			name: "broken json truncated to n",
			raw:  `{"translations": ["a", "b", "c"`,
			n:    2,
			want: []string{"a", "b"},
		},
		{
			name: "garbage",
			raw:  "I cannot help with that.",
			n:    2,
			want: []string{"", ""},
		},
		{
			name: "empty",
			raw:  "",
			n:    0,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTranslations(tt.raw, tt.n)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTranslationsAlwaysN(t *testing.T) {
	inputs := []string{
		"",
		"{",
		"}{",
		"```json```",
		`"translations"`,
		`{"translations": "not an array"}`,
		`[[["deep"]]]`,
		`{"translations": ["x", "y", "z", "w"]}`,
	}
	for _, raw := range inputs {
		for n := 0; n < 5; n++ {
			assert.Len(t, ParseTranslations(raw, n), n, "raw=%q n=%d", raw, n)
		}
	}
	assert.Len(t, ParseTranslations("[]", -1), 0)
}
