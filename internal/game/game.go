// Package game implements the authoritative turn simulation. The Game type
// is a pure state machine: it owns no sockets and no timers, consumes
// queued player commands, and produces the event log of each turn. Given
// the same settings, seed and command sequence it produces the same
// broadcast stream, byte for byte.
package game

import (
	"sort"

	"github.com/amalg/go-bombrobots/internal/wire"
)

// Phase is the lifecycle phase of a game.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseActive
)

// activeBomb is an armed bomb. The bombs slice stays sorted by id because
// ids are allocated monotonically and removal preserves order.
type activeBomb struct {
	id    wire.BombID
	pos   wire.Position
	timer uint16
}

// Game is the authoritative simulation state. It is not safe for concurrent
// use; the server serializes access behind its own lock.
type Game struct {
	settings Settings
	rng      *RNG

	phase        Phase
	turn         uint16
	nextPlayerID wire.PlayerID
	nextBombID   wire.BombID

	players   map[wire.PlayerID]wire.Player
	positions map[wire.PlayerID]wire.Position
	scores    map[wire.PlayerID]wire.Score
	blocks    map[wire.Position]bool
	bombs     []activeBomb

	// Last command per player since the previous turn; most recent wins.
	commands map[wire.PlayerID]wire.ClientToServer
}

// New returns a Game in the lobby phase.
func New(settings Settings) *Game {
	g := &Game{
		settings: settings,
		rng:      NewRNG(settings.Seed),
	}
	g.reset()
	return g
}

func (g *Game) reset() {
	g.phase = PhaseLobby
	g.turn = 0
	g.nextPlayerID = 0
	g.nextBombID = 0
	g.players = make(map[wire.PlayerID]wire.Player)
	g.positions = make(map[wire.PlayerID]wire.Position)
	g.scores = make(map[wire.PlayerID]wire.Score)
	g.blocks = make(map[wire.Position]bool)
	g.bombs = nil
	g.commands = make(map[wire.PlayerID]wire.ClientToServer)
}

// Phase returns the current lifecycle phase.
func (g *Game) Phase() Phase { return g.phase }

// Turn returns the number of the most recently simulated turn.
func (g *Game) Turn() uint16 { return g.turn }

// Settings returns the immutable game parameters.
func (g *Game) Settings() Settings { return g.settings }

// AddPlayer admits a player into the lobby and returns the assigned id.
// It returns ok=false when the game is active or the lobby is full.
func (g *Game) AddPlayer(name, address string) (wire.PlayerID, bool) {
	if g.phase != PhaseLobby || g.Full() {
		return 0, false
	}
	id := g.nextPlayerID
	g.nextPlayerID++
	g.players[id] = wire.Player{Name: name, Address: address}
	return id, true
}

// Full reports whether the lobby holds the configured player count.
func (g *Game) Full() bool {
	return len(g.players) == int(g.settings.PlayersCount)
}

// Players returns a copy of the admitted roster.
func (g *Game) Players() map[wire.PlayerID]wire.Player {
	players := make(map[wire.PlayerID]wire.Player, len(g.players))
	for id, p := range g.players {
		players[id] = p
	}
	return players
}

// Scores returns a copy of the per-player death counts.
func (g *Game) Scores() map[wire.PlayerID]wire.Score {
	scores := make(map[wire.PlayerID]wire.Score, len(g.scores))
	for id, s := range g.scores {
		scores[id] = s
	}
	return scores
}

// QueueCommand records a command from an admitted player. Only the most
// recent command per player survives until the next turn; Join is never a
// valid in-game command and is dropped here.
func (g *Game) QueueCommand(id wire.PlayerID, cmd wire.ClientToServer) {
	if g.phase != PhaseActive {
		return
	}
	if _, admitted := g.players[id]; !admitted {
		return
	}
	if _, isJoin := cmd.(wire.Join); isJoin {
		return
	}
	g.commands[id] = cmd
}

// Start transitions Lobby → Active and simulates turn 0: every robot is
// dropped at a random position, then the initial blocks are drawn.
func (g *Game) Start() wire.Turn {
	g.phase = PhaseActive
	g.turn = 0
	for id := range g.players {
		g.scores[id] = 0
	}

	var events []wire.Event
	for _, id := range g.sortedPlayerIDs() {
		pos := g.randomPosition()
		g.positions[id] = pos
		events = append(events, wire.PlayerMoved{ID: id, Position: pos})
	}
	for i := uint16(0); i < g.settings.InitialBlocks; i++ {
		pos := g.randomPosition()
		if !g.blocks[pos] {
			g.blocks[pos] = true
			events = append(events, wire.BlockPlaced{Position: pos})
		}
	}
	return wire.Turn{Turn: 0, Events: events}
}

// NextTurn simulates the next turn: first the bomb tick and explosion pass,
// then the player action pass. Queued commands are cleared afterwards
// whether or not they applied.
func (g *Game) NextTurn() wire.Turn {
	g.turn++
	var events []wire.Event

	destroyedRobots := make(map[wire.PlayerID]bool)
	destroyedBlocks := make(map[wire.Position]bool)

	// Bomb tick. Explosions see the robot and block state as it was at the
	// start of this pass: blocks and bombs are only removed afterwards.
	remaining := g.bombs[:0]
	for i := range g.bombs {
		bomb := &g.bombs[i]
		if bomb.timer > 0 {
			bomb.timer--
		}
		if bomb.timer > 0 {
			remaining = append(remaining, *bomb)
			continue
		}
		ev := g.explode(bomb, destroyedRobots, destroyedBlocks)
		events = append(events, ev)
	}
	g.bombs = remaining
	for pos := range destroyedBlocks {
		delete(g.blocks, pos)
	}

	// Player actions, in ascending id order. A robot destroyed this turn
	// respawns instead of acting.
	for _, id := range g.sortedPlayerIDs() {
		if destroyedRobots[id] {
			pos := g.randomPosition()
			g.positions[id] = pos
			g.scores[id]++
			events = append(events, wire.PlayerMoved{ID: id, Position: pos})
			continue
		}
		cmd, ok := g.commands[id]
		if !ok {
			continue
		}
		if ev, ok := g.apply(id, cmd); ok {
			events = append(events, ev)
		}
	}
	g.commands = make(map[wire.PlayerID]wire.ClientToServer)

	return wire.Turn{Turn: g.turn, Events: events}
}

// Finished reports whether the last simulated turn was the final one.
func (g *Game) Finished() bool {
	return g.turn == g.settings.GameLength
}

// Reset returns the game to the lobby phase, dropping all per-game state
// and counters. The RNG keeps advancing across games.
func (g *Game) Reset() {
	g.reset()
}

// explode detonates bomb: four rays of up to ExplosionRadius cells from the
// bomb's position, each stopped by the board edge or the first block. Every
// robot on a blast cell is destroyed.
func (g *Game) explode(bomb *activeBomb, destroyedRobots map[wire.PlayerID]bool, destroyedBlocks map[wire.Position]bool) wire.Event {
	ev := wire.BombExploded{
		ID:              bomb.id,
		RobotsDestroyed: []wire.PlayerID{},
		BlocksDestroyed: []wire.Position{},
	}
	seenRobots := make(map[wire.PlayerID]bool)
	seenBlocks := make(map[wire.Position]bool)
	ids := g.sortedPlayerIDs()

	Blast(bomb.pos, g.settings.ExplosionRadius, g.settings.SizeX, g.settings.SizeY, g.isBlock, func(cell wire.Position) {
		if g.blocks[cell] && !seenBlocks[cell] {
			seenBlocks[cell] = true
			destroyedBlocks[cell] = true
			ev.BlocksDestroyed = append(ev.BlocksDestroyed, cell)
		}
		for _, id := range ids {
			if g.positions[id] == cell && !seenRobots[id] {
				seenRobots[id] = true
				destroyedRobots[id] = true
				ev.RobotsDestroyed = append(ev.RobotsDestroyed, id)
			}
		}
	})
	return ev
}

func (g *Game) isBlock(pos wire.Position) bool {
	return g.blocks[pos]
}

// apply performs a single queued command and returns the resulting event,
// if any. A move into a block or off the board is a no-op.
func (g *Game) apply(id wire.PlayerID, cmd wire.ClientToServer) (wire.Event, bool) {
	pos := g.positions[id]
	switch c := cmd.(type) {
	case wire.Move:
		next, ok := g.step(pos, c.Direction)
		if !ok || g.blocks[next] {
			return nil, false
		}
		g.positions[id] = next
		return wire.PlayerMoved{ID: id, Position: next}, true
	case wire.PlaceBomb:
		bombID := g.nextBombID
		g.nextBombID++
		g.bombs = append(g.bombs, activeBomb{id: bombID, pos: pos, timer: g.settings.BombTimer})
		return wire.BombPlaced{ID: bombID, Position: pos}, true
	case wire.PlaceBlock:
		if g.blocks[pos] {
			return nil, false
		}
		g.blocks[pos] = true
		return wire.BlockPlaced{Position: pos}, true
	}
	return nil, false
}

// step returns the neighbor of pos in dir, or ok=false at the board edge.
func (g *Game) step(pos wire.Position, dir wire.Direction) (wire.Position, bool) {
	dx, dy := dir.Offset()
	x := int(pos.X) + dx
	y := int(pos.Y) + dy
	if x < 0 || x >= int(g.settings.SizeX) || y < 0 || y >= int(g.settings.SizeY) {
		return wire.Position{}, false
	}
	return wire.Position{X: uint16(x), Y: uint16(y)}, true
}

func (g *Game) randomPosition() wire.Position {
	x := uint16(g.rng.Next() % uint32(g.settings.SizeX))
	y := uint16(g.rng.Next() % uint32(g.settings.SizeY))
	return wire.Position{X: x, Y: y}
}

func (g *Game) sortedPlayerIDs() []wire.PlayerID {
	ids := make([]wire.PlayerID, 0, len(g.players))
	for id := range g.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
