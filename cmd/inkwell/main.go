// Inkwell - personal journaling with WebDAV sync.
//
// A local-first journal store that synchronizes against any WebDAV
// server and migrates legacy attachment files into a content-organized
// layout.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/inkwell-app/inkwell/internal/cli"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	paths := config.GetPaths(cfg)
	if err := log.Init(paths.Logs); err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Close() }()

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
