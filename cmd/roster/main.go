package main

import (
	"fmt"
	"log/slog"
	"os"
)

func main() {
	/**********************************************
	 * 创建 logger，输出到 stderr，避免污染解析结果
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
