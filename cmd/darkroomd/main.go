// Command darkroomd runs the darkroom daemon in the foreground. It is the
// systemd-friendly entry point; `darkroom daemon start` launches the same
// runtime detached through the CLI.
package main

import (
	"context"
	"log"

	"darkroom/internal/config"
	"darkroom/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel: cfg.Logging.Level,
	}); err != nil {
		log.Fatalf("run daemon: %v", err)
	}
}
