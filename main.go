package main

import (
	"fmt"
	"os"

	"github.com/xiaocaoooo/screenshot-lambda/internal/cmd"
)

// 构建时通过 -ldflags 注入
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, buildTime)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
