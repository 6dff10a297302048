// Package main starts the jibe gRPC service process lifecycle.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	jibecmd "github.com/louisbranch/jibe/internal/cmd/jibe"
	"github.com/louisbranch/jibe/internal/platform/config"
)

func main() {
	cfg, err := jibecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := jibecmd.Run(ctx, cfg); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}
