package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"npc-director/server/internal/app"
)

func main() {
	var opts app.Options
	flag.StringVar(&opts.ConfigPath, "config", "", "path to a YAML config layered over the defaults")
	flag.StringVar(&opts.Addr, "addr", "", "listen address, overrides server.addr")
	flag.BoolVar(&opts.Observability.EnablePprof, "pprof", false, "expose /debug/pprof")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, opts); err != nil {
		log.Fatalf("%v", err)
	}
}
