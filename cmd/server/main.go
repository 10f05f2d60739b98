package main

import (
	"github.com/delve-hq/delve/backend/internal/server"
	"github.com/delve-hq/delve/backend/internal/util"
	"github.com/delve-hq/delve/backend/pkg/logger"
	"github.com/delve-hq/delve/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
