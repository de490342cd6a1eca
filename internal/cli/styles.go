package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/config"
	"github.com/spf13/cobra"
)

// NewStylesCommand 创建 styles 命令
func NewStylesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "styles",
		Short: "查看和修改翻译风格",
		Long: `风格列表保存在设置目录的 styles.toml 中。风格名称支持模糊匹配，
例如 "acad" 会匹配 academic。`,
		RunE: runStylesList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "列出全部风格",
		Args:  cobra.NoArgs,
		RunE:  runStylesList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "use <style> <bundle.zip>",
		Short: "设置工程包的当前风格",
		Args:  cobra.ExactArgs(2),
		RunE:  runStylesUse,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-prompt <style> <prompt>",
		Short: "修改风格提示词",
		Args:  cobra.ExactArgs(2),
		RunE:  runStylesSetPrompt,
	})
	return cmd
}

func runStylesList(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "名称", "提示词"})
	for _, st := range a.session.Styles() {
		t.AppendRow(table.Row{st.ID, st.Name, truncate(st.Prompt, 60)})
	}
	t.Render()
	return nil
}

func runStylesUse(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	bundle := args[1]
	if err := a.session.Import(bundle); err != nil {
		return err
	}
	st, err := resolveStyle(a.session.Styles(), args[0])
	if err != nil {
		return err
	}
	if err := a.session.SetActiveStyle(st.ID); err != nil {
		return err
	}
	if err := a.session.Export(bundle); err != nil {
		return fmt.Errorf("保存工程包失败: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s → %s\n", color.GreenString("✅ 当前风格"), st.ID, bundle)
	return nil
}

func runStylesSetPrompt(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	st, err := resolveStyle(a.session.Styles(), args[0])
	if err != nil {
		return err
	}
	if err := a.session.UpdateStylePrompt(st.ID, args[1]); err != nil {
		return fmt.Errorf("保存风格失败: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✅ 已更新风格"), st.ID)
	return nil
}

// resolveStyle 按 id、名称精确匹配，失败时对 id 和名称做模糊匹配取最接近的一个
func resolveStyle(styles []config.Style, query string) (config.Style, error) {
	q := strings.TrimSpace(query)
	for _, st := range styles {
		if strings.EqualFold(st.ID, q) || st.Name == q {
			return st, nil
		}
	}

	targets := make([]string, 0, len(styles)*2)
	owners := make([]int, 0, len(styles)*2)
	for i, st := range styles {
		targets = append(targets, st.ID, st.Name)
		owners = append(owners, i, i)
	}
	ranks := fuzzy.RankFindNormalizedFold(q, targets)
	if q == "" || len(ranks) == 0 {
		ids := make([]string, len(styles))
		for i, st := range styles {
			ids[i] = st.ID
		}
		return config.Style{}, fmt.Errorf("找不到风格 %q，可用风格: %s", query, strings.Join(ids, ", "))
	}
	sort.Sort(ranks)
	return styles[owners[ranks[0].OriginalIndex]], nil
}
