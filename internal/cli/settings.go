package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-bilingual-sync/pkg/providers/openai"
	"github.com/spf13/cobra"
)

var (
	settingsModel   string
	settingsBaseURL string
	settingsAPIKey  string
)

// NewSettingsCommand 创建 settings 命令
func NewSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings [flags]",
		Short: "查看或修改提供商设置",
		Long: `不带参数时显示当前提供商设置。

设置了 base URL 时通过 OpenAI 兼容接口调用，否则使用 SDK 默认接口。
传入空字符串可以清除 base URL 或密钥，例如 --base-url ""。`,
		Args: cobra.NoArgs,
		RunE: runSettingsCommand,
	}
	cmd.Flags().StringVar(&settingsModel, "model", "", "模型名称")
	cmd.Flags().StringVar(&settingsBaseURL, "base-url", "", "OpenAI 兼容接口地址")
	cmd.Flags().StringVar(&settingsAPIKey, "api-key", "", "API 密钥")
	return cmd
}

func runSettingsCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	flags := cmd.Flags()
	if flags.Changed("model") || flags.Changed("base-url") || flags.Changed("api-key") {
		settings := a.session.ProviderSettings()
		if flags.Changed("model") {
			settings.Model = settingsModel
		}
		if flags.Changed("base-url") {
			settings.BaseURL = settingsBaseURL
		}
		if flags.Changed("api-key") {
			settings.APIKey = settingsAPIKey
		}
		if err := a.session.SetProviderSettings(settings); err != nil {
			return fmt.Errorf("保存提供商设置失败: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✅ 提供商设置已保存"))
	}

	settings := a.session.ProviderSettings()
	transport := "sdk"
	if settings.BaseURL != "" {
		transport = "openai-compatible"
	}
	label := color.New(color.FgCyan)
	out := cmd.OutOrStdout()
	label.Fprint(out, "  Model    : ")
	fmt.Fprintln(out, settings.Model)
	label.Fprint(out, "  Base URL : ")
	fmt.Fprintln(out, orDash(settings.BaseURL))
	label.Fprint(out, "  API Key  : ")
	fmt.Fprintln(out, orDash(openai.MaskAuthToken(settings.APIKey)))
	label.Fprint(out, "  Transport: ")
	fmt.Fprintln(out, transport)
	return nil
}

// NewTestCommand 创建 test 命令
func NewTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "测试提供商连通性",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			start := time.Now()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := a.session.TestConnection(ctx); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", color.RedString("✗ 连接失败:"), err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n",
				color.GreenString("✅ 连接成功"), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
