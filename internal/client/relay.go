package client

import (
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/amalg/go-bombrobots/internal/wire"
)

// maxDatagram is the largest UDP payload the relay will read (IPv6 worst
// case).
const maxDatagram = 65527

// Relay bridges one interface endpoint and one game server. Two goroutines
// run concurrently: one reads interface datagrams and forwards commands to
// the server, the other reads server messages and pushes snapshots to the
// interface. Both mutate the shared projection under one mutex.
type Relay struct {
	playerName string

	server net.Conn     // TCP stream to the game server
	in     *net.UDPConn // bound socket for datagrams from the interface
	out    *net.UDPConn // connected socket for datagrams to the interface

	mu         sync.Mutex
	projection *Projection
	sendMu     sync.Mutex // serializes writes to the server stream
}

// Dial connects the relay: a TCP stream to serverAddr, a UDP listener on
// port, and a UDP socket towards interfaceAddr.
func Dial(serverAddr, interfaceAddr string, port uint16, playerName string) (*Relay, error) {
	server, err := net.Dial("tcp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("connect to server %s: %w", serverAddr, err)
	}
	if tcp, ok := server.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}

	in, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(port)})
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("bind udp port %d: %w", port, err)
	}

	ifaceAddr, err := net.ResolveUDPAddr("udp", interfaceAddr)
	if err != nil {
		server.Close()
		in.Close()
		return nil, fmt.Errorf("resolve interface address %s: %w", interfaceAddr, err)
	}
	out, err := net.DialUDP("udp", nil, ifaceAddr)
	if err != nil {
		server.Close()
		in.Close()
		return nil, fmt.Errorf("open interface socket: %w", err)
	}

	log.Printf("[CLIENT] Connected to server %s, interface at %s, listening on udp :%d",
		serverAddr, interfaceAddr, port)

	return &Relay{
		playerName: playerName,
		server:     server,
		in:         in,
		out:        out,
		projection: NewProjection(),
	}, nil
}

// Run drives both directions until the server stream fails, which is fatal
// for the relay, or the interface socket itself can no longer be read.
// Undecodable interface datagrams are logged and dropped.
func (r *Relay) Run() error {
	errc := make(chan error, 2)
	go func() { errc <- r.serverLoop() }()
	go func() { errc <- r.interfaceLoop() }()
	err := <-errc
	r.Close()
	return err
}

// Close shuts every socket; in-flight reads fail and the loops return.
func (r *Relay) Close() {
	r.server.Close()
	r.in.Close()
	r.out.Close()
}

// serverLoop decodes the authoritative stream and pushes a snapshot to the
// interface whenever the projection produces one.
func (r *Relay) serverLoop() error {
	dec := wire.NewDecoder(r.server)
	for {
		msg, err := dec.ServerToClient()
		if err != nil {
			return fmt.Errorf("server stream: %w", err)
		}

		r.mu.Lock()
		snapshot, ok := r.projection.Apply(msg)
		r.mu.Unlock()
		if !ok {
			continue
		}

		buf, err := wire.AppendClientToInterface(nil, snapshot)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if _, err := r.out.Write(buf); err != nil {
			// Interface datagrams are best effort.
			log.Printf("[CLIENT] Dropping snapshot: %v", err)
		}
	}
}

// interfaceLoop turns interface intents into server commands. The first
// intent of every lobby becomes the Join; afterwards intents pass through
// only while a game is active.
func (r *Relay) interfaceLoop() error {
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := r.in.ReadFromUDP(buf)
		if err != nil {
			return fmt.Errorf("interface socket: %w", err)
		}
		msg, err := wire.DecodeInterfaceToClient(buf[:n])
		if err != nil {
			log.Printf("[CLIENT] Dropping interface datagram: %v", err)
			continue
		}

		cmd, ok := r.translate(msg)
		if !ok {
			continue
		}
		if err := r.sendToServer(cmd); err != nil {
			return fmt.Errorf("send to server: %w", err)
		}
	}
}

// translate maps an interface intent onto the command to send, or nothing.
func (r *Relay) translate(msg wire.InterfaceToClient) (wire.ClientToServer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.projection.InLobby() && !r.projection.JoinSent():
		r.projection.MarkJoinSent()
		return wire.Join{Name: r.playerName}, true
	case r.projection.InGame():
		// PlaceBomb, PlaceBlock and Move are shared variants of both sums.
		cmd, ok := msg.(wire.ClientToServer)
		return cmd, ok
	default:
		return nil, false
	}
}

func (r *Relay) sendToServer(cmd wire.ClientToServer) error {
	buf, err := wire.AppendClientToServer(nil, cmd)
	if err != nil {
		return err
	}
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	_, err = r.server.Write(buf)
	return err
}
