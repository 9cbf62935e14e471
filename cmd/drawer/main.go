// Package main starts the drawer service.
//
// This process owns one shopper session's drawer: it renders fragments,
// proxies mutations to the cart authority, and fans cart changes out to
// the promotion widgets.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	drawercmd "github.com/louisbranch/voocart/internal/cmd/drawer"
)

func main() {
	cfg, err := drawercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[DRAWER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := drawercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
