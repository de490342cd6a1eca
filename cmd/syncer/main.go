package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-bilingual-sync/internal/cli"
)

// Version information
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	rootCmd := cli.NewRootCommand(Version, Commit, BuildDate)

	// 命令内部各自创建日志，这里只负责把错误展示给用户
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("错误: %v", err))
		os.Exit(1)
	}
}
