package translation

import (
	"encoding/json"
	"fmt"
)

// ConnectionProbe 连接测试使用的提示词
const ConnectionProbe = "Respond with 'Connected'"

// TextPrompt 单句正向翻译提示词
func TextPrompt(text, stylePrompt string) string {
	return fmt.Sprintf("Task: Translate to Chinese (Simplified). Style: %s. Text: %q. Return ONLY the translation text.", stylePrompt, text)
}

// ParagraphPrompt 段落批量翻译提示词，要求模型按位置返回等长数组
func ParagraphPrompt(sentences []string, stylePrompt string) string {
	input, err := json.Marshal(sentences)
	if err != nil {
		input = []byte("[]")
	}
	n := len(sentences)
	return fmt.Sprintf(`CRITICAL TASK: Translate %d sentences into Chinese (Simplified).
RULES:
1. You MUST return exactly %d items in the "translations" array.
2. If a sentence is empty or a space, return " " for that index.
3. DO NOT merge sentences.
Style: %s
Output format: {"translations": ["item1", "item2", ...]}
Input sentences: %s`, n, n, stylePrompt, input)
}

// ReversePrompt 根据修改后的中文回写英文原文的提示词
func ReversePrompt(original, modified, surrounding string) string {
	return fmt.Sprintf(`Task: Update English text to strictly match the revised Chinese meaning.
Context: %q
Revised Chinese: %q
Current English: %q
Return ONLY the updated English text.`, surrounding, modified, original)
}
