package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/amalg/go-bombrobots/internal/client"
)

var flagAliases = map[string]string{
	"d": "gui-address",
	"n": "player-name",
	"p": "port",
	"s": "server-address",
}

func main() {
	var (
		guiAddress    string
		playerName    string
		port          uint
		serverAddress string
	)

	flag.StringVar(&guiAddress, "gui-address", "", "interface datagram destination (host:port)")
	flag.StringVar(&guiAddress, "d", "", "interface datagram destination (host:port)")
	flag.StringVar(&playerName, "player-name", "", "name sent in Join")
	flag.StringVar(&playerName, "n", "", "name sent in Join")
	flag.UintVar(&port, "port", 0, "UDP port for datagrams from the interface")
	flag.UintVar(&port, "p", 0, "UDP port for datagrams from the interface")
	flag.StringVar(&serverAddress, "server-address", "", "game server address (host:port)")
	flag.StringVar(&serverAddress, "s", "", "game server address (host:port)")
	flag.Parse()

	seen := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := flagAliases[name]; ok {
			name = long
		}
		seen[name] = true
	})
	for _, required := range []string{"gui-address", "player-name", "port", "server-address"} {
		if !seen[required] {
			fmt.Fprintf(os.Stderr, "missing required option --%s\n", required)
			os.Exit(1)
		}
	}
	if port > math.MaxUint16 {
		fmt.Fprintf(os.Stderr, "--port out of range: %d\n", port)
		os.Exit(1)
	}
	if len(playerName) > 255 {
		fmt.Fprintln(os.Stderr, "--player-name longer than 255 bytes")
		os.Exit(1)
	}

	relay, err := client.Dial(serverAddress, guiAddress, uint16(port), playerName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		relay.Close()
		os.Exit(0)
	}()

	// Any failure on the server stream is fatal for the relay.
	if err := relay.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Relay stopped: %v\n", err)
		os.Exit(1)
	}
}
