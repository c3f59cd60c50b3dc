// main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	projectDir := flag.String("project", "", "project directory to serve (defaults to the working directory)")
	flag.Parse()

	dir := *projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("[Main] Cannot determine working directory: %v", err)
		}
		dir = wd
	}

	app := NewApp(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Startup(ctx); err != nil {
		log.Fatalf("[Main] Startup failed: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Printf("[Main] Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	app.Shutdown(shutdownCtx)
}
