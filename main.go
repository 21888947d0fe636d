package main

import (
	"os"

	"github.com/raushankrgupta/fitly-client/cli"
	"github.com/raushankrgupta/fitly-client/config"
	"github.com/raushankrgupta/fitly-client/utils"
)

func main() {
	config.LoadConfig()
	utils.InitLogger(config.LogLevel)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
