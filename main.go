package main

import (
	"fmt"
	"os"

	"webpconv/cli"
	"webpconv/config"
	"webpconv/logger"
)

func main() {
	logger.SetLevel(logger.ParseLevel(config.GetLogLevel()))
	if path := config.GetLogFile(); path != "" {
		if err := logger.Init(path, true); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
	defer logger.Close()

	if err := cli.Run(os.Args[1:]); err != nil {
		logger.Close()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
