package test

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTranslator 是一个模拟的翻译器
type MockTranslator struct {
	mock.Mock
}

// TranslateText 正向翻译单句
func (m *MockTranslator) TranslateText(ctx context.Context, text, stylePrompt string) (string, error) {
	args := m.Called(ctx, text, stylePrompt)
	return args.String(0), args.Error(1)
}

// TranslateParagraph 批量翻译
func (m *MockTranslator) TranslateParagraph(ctx context.Context, sentences []string, stylePrompt string) ([]string, error) {
	args := m.Called(ctx, sentences, stylePrompt)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

// ReverseTranslate 回写原文
func (m *MockTranslator) ReverseTranslate(ctx context.Context, original, modified, surrounding string) (string, error) {
	args := m.Called(ctx, original, modified, surrounding)
	return args.String(0), args.Error(1)
}
