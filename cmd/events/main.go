// Package main starts the score journal reader process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	eventscmd "github.com/yargame/yar/internal/cmd/events"
)

func main() {
	cfg, err := eventscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[EVENTS] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eventscmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to read journal: %v", err)
	}
}
