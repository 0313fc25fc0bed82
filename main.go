/*
Anima overlay: a single window that presents a stats overlay through a
Vulkan swapchain, one fence-guarded frame at a time.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-overlay/engine"
	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/testbed"
)

func main() {
	configPath := flag.String("config", "config.toml", "path of the TOML configuration file")
	flag.Parse()

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		core.LogError("failed to load configuration: %s", err)
		return 1
	}

	tb := testbed.NewTestGame(cfg, configPath)

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogError("%s", err)
		return 1
	}
	tb.Input = e.Input()

	if err := e.Initialize(); err != nil {
		return 1
	}

	// signal channel to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := e.Run(ctx); err != nil {
		return 1
	}
	return 0
}
