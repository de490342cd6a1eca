package translation

import (
	"encoding/json"
	"strings"

	"github.com/dlclark/regexp2"
)

var (
	codeFence     = regexp2.MustCompile("```json\\n?|\\n?```", regexp2.None)
	quotedLiteral = regexp2.MustCompile(`"([^"\\]*(?:\\.[^"\\]*)*)"`, regexp2.None)
)

// translationsKey 是结构化响应中的数组字段名
const translationsKey = "translations"

// ParseTranslations 将模型原始输出解析为恰好 n 条译文。
// 依次尝试：去除代码块标记、截取最外层花括号、JSON 解析、
// 提取引号字符串，全部失败时返回 n 个空串。该函数不会失败。
func ParseTranslations(raw string, n int) []string {
	if n < 0 {
		n = 0
	}

	clean, err := codeFence.Replace(raw, "", -1, -1)
	if err != nil {
		clean = raw
	}
	clean = strings.TrimSpace(clean)

	first, last := strings.Index(clean, "{"), strings.LastIndex(clean, "}")
	if first != -1 && last != -1 && first < last {
		clean = clean[first : last+1]
	}

	if list, ok := parseStructured(clean); ok {
		return fit(list, n)
	}
	// 无匹配时 fit 返回 n 个空串
	return fit(extractLiterals(clean), n)
}

// parseStructured 解析 {"translations": [...]} 或裸数组
func parseStructured(s string) ([]string, bool) {
	var parsed interface{}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return nil, false
	}

	var items []interface{}
	switch v := parsed.(type) {
	case map[string]interface{}:
		items, _ = v[translationsKey].([]interface{})
	case []interface{}:
		items = v
	}

	list := make([]string, len(items))
	for i, item := range items {
		if str, ok := item.(string); ok {
			list[i] = str
		}
	}
	return list, true
}

// extractLiterals 提取所有引号字符串，跳过字段名 translations
func extractLiterals(s string) []string {
	var list []string
	m, err := quotedLiteral.FindStringMatch(s)
	for m != nil && err == nil {
		body := m.GroupByNumber(1).String()
		if body != translationsKey {
			list = append(list, unescape(body))
		}
		m, err = quotedLiteral.FindNextMatch(m)
	}
	return list
}

// unescape 尝试按 JSON 规则还原转义序列，失败时原样返回
func unescape(body string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &out); err != nil {
		return body
	}
	return out
}

// fit 将列表补齐或截断到 n 条
func fit(list []string, n int) []string {
	out := make([]string, n)
	copy(out, list)
	return out
}
