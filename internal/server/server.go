// Package server runs the game server: it accepts TCP connections, admits
// players into the lobby, drives the turn clock, and fans the engine's
// event stream out to every connected client in one total order.
package server

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/amalg/go-bombrobots/internal/game"
	"github.com/amalg/go-bombrobots/internal/wire"
)

const (
	// maxConnections bounds simultaneously connected clients, admitted or not.
	maxConnections = 25
	// outboundQueueSize is the per-client message queue depth. A client that
	// falls this far behind the broadcast stream is dropped.
	outboundQueueSize = 1024
)

// Server hosts one game after another on a single TCP listener.
type Server struct {
	settings game.Settings
	listener net.Listener
	done     chan struct{}

	// mu guards the engine, the client set and the catch-up logs. Every
	// enqueue to a client queue happens under mu, so all clients observe
	// the same message order and replay hands off to live broadcasts
	// without gaps or duplicates.
	mu       sync.Mutex
	game     *game.Game
	clients  map[*client]bool
	lobbyLog []wire.ServerToClient // AcceptedPlayer messages of the open lobby
	gameLog  []wire.ServerToClient // GameStarted plus every Turn of the running game
}

// client is one TCP connection. A connection may never join; it still
// receives every broadcast.
type client struct {
	conn     net.Conn
	out      chan wire.ServerToClient
	player   wire.PlayerID
	admitted bool
	gone     bool
}

// New creates a server for the given settings.
func New(settings game.Settings) *Server {
	return &Server{
		settings: settings,
		done:     make(chan struct{}),
		game:     game.New(settings),
		clients:  make(map[*client]bool),
	}
}

// Start opens the listener and begins accepting connections. The listener
// is dual-stack where the platform supports it.
func (s *Server) Start(port uint16) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener
	log.Printf("[SERVER] Listening on %s", listener.Addr())
	go s.acceptLoop()
	return nil
}

// Addr returns the listener address, useful when port 0 was requested.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener and every connection. Safe to call more than
// once.
func (s *Server) Stop() {
	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.clients {
		s.removeClientLocked(c)
	}
	s.mu.Unlock()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Printf("[SERVER] Accept error: %v", err)
				continue
			}
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			tcp.SetNoDelay(true)
		}
		s.addClient(conn)
	}
}

// addClient registers the connection and queues its catch-up messages:
// Hello always, then either the accepted players of the open lobby or the
// full replay of the running game.
func (s *Server) addClient(conn net.Conn) {
	s.mu.Lock()
	if len(s.clients) >= maxConnections {
		s.mu.Unlock()
		log.Printf("[SERVER] Connection limit reached, refusing %s", conn.RemoteAddr())
		conn.Close()
		return
	}

	// The queue must absorb the whole catch-up log up front, plus slack for
	// live broadcasts.
	c := &client{
		conn: conn,
		out:  make(chan wire.ServerToClient, outboundQueueSize+1+len(s.gameLog)+len(s.lobbyLog)),
	}
	s.clients[c] = true

	c.out <- s.hello()
	switch s.game.Phase() {
	case game.PhaseLobby:
		for _, msg := range s.lobbyLog {
			c.out <- msg
		}
	case game.PhaseActive:
		for _, msg := range s.gameLog {
			c.out <- msg
		}
	}
	s.mu.Unlock()

	log.Printf("[SERVER] Client connected: %s", conn.RemoteAddr())
	go s.writeLoop(c)
	go s.readLoop(c)
}

func (s *Server) hello() wire.Hello {
	return wire.Hello{
		ServerName:      s.settings.ServerName,
		PlayersCount:    s.settings.PlayersCount,
		SizeX:           s.settings.SizeX,
		SizeY:           s.settings.SizeY,
		GameLength:      s.settings.GameLength,
		ExplosionRadius: s.settings.ExplosionRadius,
		BombTimer:       s.settings.BombTimer,
	}
}

// writeLoop drains the client's queue onto its connection. Messages are
// written whole; the codec output is self-delimiting.
func (s *Server) writeLoop(c *client) {
	var buf []byte
	for msg := range c.out {
		buf = buf[:0]
		var err error
		if buf, err = wire.AppendServerToClient(buf, msg); err != nil {
			log.Printf("[SERVER] Encode error for %s: %v", c.conn.RemoteAddr(), err)
			s.removeClient(c)
			return
		}
		if _, err := c.conn.Write(buf); err != nil {
			s.removeClient(c)
			return
		}
	}
}

// readLoop decodes commands from the connection until it fails. Any read
// or protocol error just ends this connection; the robot, if admitted,
// stays in the simulation.
func (s *Server) readLoop(c *client) {
	dec := wire.NewDecoder(c.conn)
	for {
		msg, err := dec.ClientToServer()
		if err != nil {
			log.Printf("[SERVER] Client %s gone: %v", c.conn.RemoteAddr(), err)
			s.removeClient(c)
			return
		}
		s.handleCommand(c, msg)
	}
}

func (s *Server) handleCommand(c *client, msg wire.ClientToServer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if join, ok := msg.(wire.Join); ok {
		s.handleJoinLocked(c, join)
		return
	}
	if c.admitted {
		s.game.QueueCommand(c.player, msg)
	}
}

// handleJoinLocked admits the sender if the lobby is open and the sender
// has no id yet. Join while a game is active is ignored.
func (s *Server) handleJoinLocked(c *client, join wire.Join) {
	if c.admitted {
		return
	}
	id, ok := s.game.AddPlayer(join.Name, c.conn.RemoteAddr().String())
	if !ok {
		return
	}
	c.player = id
	c.admitted = true

	accepted := wire.AcceptedPlayer{
		ID:     id,
		Player: wire.Player{Name: join.Name, Address: c.conn.RemoteAddr().String()},
	}
	s.lobbyLog = append(s.lobbyLog, accepted)
	s.broadcastLocked(accepted)
	log.Printf("[SERVER] Player %d joined: %q from %s", id, join.Name, c.conn.RemoteAddr())

	if s.game.Full() {
		s.startGameLocked()
	}
}

// startGameLocked fires the Lobby → Active transition: GameStarted, then
// turn 0, then the periodic turn clock.
func (s *Server) startGameLocked() {
	started := wire.GameStarted{Players: s.game.Players()}
	s.lobbyLog = nil
	s.gameLog = append(s.gameLog, started)
	s.broadcastLocked(started)
	log.Printf("[SERVER] Game started with %d players", s.settings.PlayersCount)

	turn := s.game.Start()
	s.gameLog = append(s.gameLog, turn)
	s.broadcastLocked(turn)

	if s.game.Finished() {
		s.endGameLocked()
		return
	}
	go s.runTurns()
}

// runTurns simulates one turn per tick until the game ends or the server
// stops.
func (s *Server) runTurns() {
	ticker := time.NewTicker(s.settings.TurnDuration)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.game.Phase() != game.PhaseActive {
			s.mu.Unlock()
			return
		}
		turn := s.game.NextTurn()
		s.gameLog = append(s.gameLog, turn)
		s.broadcastLocked(turn)
		if s.game.Finished() {
			s.endGameLocked()
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// endGameLocked broadcasts the final scores and reopens the lobby.
func (s *Server) endGameLocked() {
	ended := wire.GameEnded{Scores: s.game.Scores()}
	s.broadcastLocked(ended)
	log.Printf("[SERVER] Game over after turn %d", s.game.Turn())

	s.game.Reset()
	s.gameLog = nil
	for c := range s.clients {
		c.admitted = false
	}
}

// broadcastLocked enqueues msg to every connected client. A full queue
// means the client cannot keep up with the turn clock; it is dropped
// rather than allowed to stall the engine.
func (s *Server) broadcastLocked(msg wire.ServerToClient) {
	for c := range s.clients {
		select {
		case c.out <- msg:
		default:
			log.Printf("[SERVER] Client %s too slow, dropping", c.conn.RemoteAddr())
			s.removeClientLocked(c)
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	s.removeClientLocked(c)
	s.mu.Unlock()
}

func (s *Server) removeClientLocked(c *client) {
	if c.gone {
		return
	}
	c.gone = true
	delete(s.clients, c)
	close(c.out)
	c.conn.Close()
}
