// Avalink relay, the signaling server entry point.
//
// Hosts the room-scoped signaling relay: join/offer/answer/ice-candidate
// messages are forwarded between the members of a room, and nothing else.
// Media and parameter traffic never touch this process.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"github.com/yeonbit/avalink/internal/config"
	"github.com/yeonbit/avalink/internal/relay"
	"github.com/yeonbit/avalink/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cfg config.Relay
	flag.StringVar(&cfg.Addr, "addr", relay.DefaultAddr, "listen address")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.Parse()

	if cfg.Debug {
		util.EnableDebug()
	}

	pterm.Info.Printfln("avalink relay v%s", version)

	hub := relay.NewHub()
	go hub.Run(ctx)

	srv := relay.NewServer(hub)
	port, err := srv.Start(cfg.Addr)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	defer srv.Close()

	util.LogSuccess("relay listening on port %d (ws endpoint: /ws)", port)

	<-ctx.Done()
	util.LogInfo("relay shutting down")
}
