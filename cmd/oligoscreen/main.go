package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"oligoscreen/internal/app"
)

func main() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	code := app.RunSignals(context.Background(), os.Args[1:], os.Stdout, os.Stderr, sigs)
	signal.Stop(sigs)
	os.Exit(code)
}
