package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/project"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI 隔离 HOME 和设置目录，返回工作目录
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("SYNCER_SETTINGS_DIR", filepath.Join(dir, "settings"))
	t.Setenv("SYNCER_API_KEY", "")

	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test", "none", "unknown")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "essay.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hello.\n\nBye."), 0o644))
	return path
}

func TestNewAndShow(t *testing.T) {
	dir := setupCLI(t)
	input := writeInput(t, dir)
	bundle := filepath.Join(dir, "essay.zip")

	out, err := runCLI(t, "", "new", input, "-o", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "已创建")
	assert.Contains(t, out, "(2 段, 2 句)")

	p, err := project.ImportFile(bundle)
	require.NoError(t, err)
	require.Equal(t, 2, p.Document.Len())
	require.NotNil(t, p.OriginalFile)
	content, err := p.OriginalFile.Content()
	require.NoError(t, err)
	assert.Equal(t, "Hello.\n\nBye.", string(content))

	out, err = runCLI(t, "", "show", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello.")
	assert.Contains(t, out, "Bye.")

	out, err = runCLI(t, "", "show", "--segment", p.Document.Segments[1].ID, bundle)
	require.NoError(t, err)
	assert.NotContains(t, out, "Hello.")
	assert.Contains(t, out, "Bye.")

	out, err = runCLI(t, "", "stats", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "(0/2)")

	_, err = runCLI(t, "", "styles", "use", "creative", bundle)
	require.NoError(t, err)
	p, err = project.ImportFile(bundle)
	require.NoError(t, err)
	assert.Equal(t, "creative", p.CurrentStyleID)
}

func TestNewRejectsEmptyInput(t *testing.T) {
	dir := setupCLI(t)
	input := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(input, []byte("  \n\n "), 0o644))

	_, err := runCLI(t, "", "new", input, "-o", filepath.Join(dir, "out.zip"))
	assert.Error(t, err)
}

func TestStylesCommands(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "", "styles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "academic")

	out, err = runCLI(t, "", "styles", "set-prompt", "acad", "Use formal tone.")
	require.NoError(t, err)
	assert.Contains(t, out, "academic")

	out, err = runCLI(t, "", "styles")
	require.NoError(t, err)
	assert.Contains(t, out, "Use formal tone.")

	_, err = runCLI(t, "", "styles", "set-prompt", "zzzzqqq", "x")
	assert.Error(t, err)
}

func TestSettingsPersisted(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "", "settings", "--model", "m1", "--base-url", "https://llm.example.com/v1", "--api-key", "sk-test-123456")
	require.NoError(t, err)
	assert.Contains(t, out, "已保存")

	out, err = runCLI(t, "", "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "m1")
	assert.Contains(t, out, "https://llm.example.com/v1")
	assert.Contains(t, out, "openai-compatible")
	assert.NotContains(t, out, "sk-test-123456")

	out, err = runCLI(t, "", "settings", "--base-url", "")
	require.NoError(t, err)
	assert.Contains(t, out, "sdk")
	assert.Contains(t, out, "m1")
}

func TestTestAndTranslateAgainstMockServer(t *testing.T) {
	dir := setupCLI(t)
	server := test.NewMockOpenAIServer(t)
	server.SetDefaultResponse("Connected")

	_, err := runCLI(t, "", "settings", "--model", "mock-model", "--base-url", server.URL, "--api-key", "sk-mock")
	require.NoError(t, err)

	out, err := runCLI(t, "", "test")
	require.NoError(t, err)
	assert.Contains(t, out, "连接成功")

	input := writeInput(t, dir)
	bundle := filepath.Join(dir, "essay.zip")
	_, err = runCLI(t, "", "new", input, "-o", bundle)
	require.NoError(t, err)

	server.SetDefaultResponse(`{"translations":["甲"]}`)
	translated := filepath.Join(dir, "translated.zip")
	out, err = runCLI(t, "", "translate", "--no-progress", "-o", translated, bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "完成")

	p, err := project.ImportFile(translated)
	require.NoError(t, err)
	for _, seg := range p.Document.Segments {
		for _, s := range seg.Sentences {
			assert.Equal(t, "甲", s.Translated)
		}
	}

	reqs := server.Requests()
	require.NotEmpty(t, reqs)
	for _, r := range reqs {
		assert.Equal(t, "Bearer sk-mock", r.Authorization)
		assert.Equal(t, "mock-model", r.Model)
	}

	out, err = runCLI(t, "", "stats", translated)
	require.NoError(t, err)
	assert.Contains(t, out, "(2/2)")
}

func TestTestReportsFailure(t *testing.T) {
	setupCLI(t)
	server := test.NewMockOpenAIServer(t)
	server.SetDefaultResponse("nope")

	_, err := runCLI(t, "", "settings", "--base-url", server.URL, "--api-key", "sk-mock")
	require.NoError(t, err)

	out, err := runCLI(t, "", "test")
	assert.Error(t, err)
	assert.Contains(t, out, "连接失败")
}

func TestShellEditAndSave(t *testing.T) {
	dir := setupCLI(t)
	input := writeInput(t, dir)
	bundle := filepath.Join(dir, "essay.zip")
	_, err := runCLI(t, "", "new", input, "-o", bundle)
	require.NoError(t, err)

	p, err := project.ImportFile(bundle)
	require.NoError(t, err)
	first := p.Document.Segments[0]
	second := p.Document.Segments[1]

	script := strings.Join([]string{
		"autosync off",
		"edit " + first.ID + " " + first.Sentences[0].ID + " t 你好 世界",
		"flush",
		"delpara " + second.ID,
		"n",
		"bogus",
		"quit",
		"save",
		"quit",
	}, "\n") + "\n"

	out, err := runCLI(t, script, "shell", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "未知命令")
	assert.Contains(t, out, "有未保存的修改")
	assert.Contains(t, out, "已保存")

	saved, err := project.ImportFile(bundle)
	require.NoError(t, err)
	require.Equal(t, 2, saved.Document.Len())
	s, ok := saved.Document.Sentence(first.ID, first.Sentences[0].ID)
	require.True(t, ok)
	assert.Equal(t, "你好 世界", s.Translated)
}

func TestShellUndo(t *testing.T) {
	dir := setupCLI(t)
	input := writeInput(t, dir)
	bundle := filepath.Join(dir, "essay.zip")
	_, err := runCLI(t, "", "new", input, "-o", bundle)
	require.NoError(t, err)

	p, err := project.ImportFile(bundle)
	require.NoError(t, err)
	seg := p.Document.Segments[0]

	script := strings.Join([]string{
		"autosync off",
		"insert " + seg.ID + " " + seg.Sentences[0].ID,
		"undo",
		"undo",
		"save",
		"quit",
	}, "\n") + "\n"

	out, err := runCLI(t, script, "shell", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "新句子")
	assert.Contains(t, out, "没有可撤销的操作")

	saved, err := project.ImportFile(bundle)
	require.NoError(t, err)
	got, ok := saved.Document.Segment(seg.ID)
	require.True(t, ok)
	assert.Len(t, got.Sentences, 1)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, "a  b", restOfLine("edit p s t a  b", 4))
	assert.Equal(t, "", restOfLine("edit p s t", 4))

	_, err := parseSide("x")
	assert.Error(t, err)

	on, err := parseSwitch([]string{"on"})
	require.NoError(t, err)
	assert.True(t, on)
	_, err = parseSwitch(nil)
	assert.Error(t, err)
}
