package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amalg/go-bombrobots/internal/ui"
	"github.com/amalg/go-bombrobots/internal/wire"
)

const maxDatagram = 65527

var flagAliases = map[string]string{
	"d": "client-address",
	"n": "player-name",
	"p": "port",
}

func main() {
	var (
		clientAddress string
		playerName    string
		port          uint
	)

	flag.StringVar(&clientAddress, "client-address", "", "client relay datagram destination (host:port)")
	flag.StringVar(&clientAddress, "d", "", "client relay datagram destination (host:port)")
	flag.StringVar(&playerName, "player-name", "Player", "name highlighted in the HUD")
	flag.StringVar(&playerName, "n", "Player", "name highlighted in the HUD")
	flag.UintVar(&port, "port", 0, "UDP port for snapshots from the client relay")
	flag.UintVar(&port, "p", 0, "UDP port for snapshots from the client relay")
	flag.Parse()

	seen := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := flagAliases[name]; ok {
			name = long
		}
		seen[name] = true
	})
	for _, required := range []string{"client-address", "port"} {
		if !seen[required] {
			fmt.Fprintf(os.Stderr, "missing required option --%s\n", required)
			os.Exit(1)
		}
	}
	if port > math.MaxUint16 {
		fmt.Fprintf(os.Stderr, "--port out of range: %d\n", port)
		os.Exit(1)
	}

	in, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(port)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind udp port %d: %v\n", port, err)
		os.Exit(1)
	}
	defer in.Close()

	relayAddr, err := net.ResolveUDPAddr("udp", clientAddress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve %s: %v\n", clientAddress, err)
		os.Exit(1)
	}
	out, err := net.DialUDP("udp", nil, relayAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open socket to %s: %v\n", clientAddress, err)
		os.Exit(1)
	}
	defer out.Close()

	// Stray log output would corrupt Bubbletea's terminal rendering.
	log.SetOutput(io.Discard)

	snapshots := make(chan wire.ClientToInterface, 8)
	go receiveSnapshots(in, snapshots)

	send := func(msg wire.InterfaceToClient) {
		buf, err := wire.AppendInterfaceToClient(nil, msg)
		if err != nil {
			return
		}
		out.Write(buf)
	}

	model := ui.NewModel(snapshots, send, playerName)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// receiveSnapshots decodes one snapshot per datagram. Malformed datagrams
// are dropped; when the queue is full, the oldest undelivered snapshot is
// discarded to make room for the newest.
func receiveSnapshots(in *net.UDPConn, snapshots chan wire.ClientToInterface) {
	defer close(snapshots)
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := in.ReadFromUDP(buf)
		if err != nil {
			return
		}
		snapshot, err := wire.DecodeClientToInterface(buf[:n])
		if err != nil {
			continue
		}
		select {
		case snapshots <- snapshot:
		default:
			select {
			case <-snapshots:
			default:
			}
			snapshots <- snapshot
		}
	}
}
