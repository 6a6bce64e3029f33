// Package client implements the relay between the human-facing interface
// (UDP datagrams) and the game server (TCP stream). The Projection type
// rebuilds render-ready state from the server's event log; the Relay type
// owns the sockets.
package client

import (
	"sort"

	"github.com/amalg/go-bombrobots/internal/game"
	"github.com/amalg/go-bombrobots/internal/wire"
)

type phase int

const (
	phaseIdle phase = iota // nothing received yet
	phaseLobby
	phaseActive
)

// pendingBomb is a bomb the server announced but has not yet exploded. The
// server never sends bomb timers, so the client counts down from the
// BombTimer setting announced in Hello.
type pendingBomb struct {
	pos   wire.Position
	timer uint16
}

// Projection is the client's reconstruction of authoritative server state,
// sufficient to render each turn. It is a pure state machine; the Relay
// serializes access to it.
type Projection struct {
	settings wire.Hello
	phase    phase
	joinSent bool

	turn       uint16
	players    map[wire.PlayerID]wire.Player
	positions  map[wire.PlayerID]wire.Position
	scores     map[wire.PlayerID]wire.Score
	blocks     map[wire.Position]bool
	bombs      map[wire.BombID]pendingBomb
	explosions map[wire.Position]bool
}

// NewProjection returns an empty projection. No snapshot is produced until
// the server's Hello arrives.
func NewProjection() *Projection {
	return &Projection{}
}

// InLobby reports whether the projection is in the lobby phase.
func (p *Projection) InLobby() bool { return p.phase == phaseLobby }

// InGame reports whether the projection is in the active phase.
func (p *Projection) InGame() bool { return p.phase == phaseActive }

// JoinSent reports whether a Join was already synthesized this lobby.
func (p *Projection) JoinSent() bool { return p.joinSent }

// MarkJoinSent records that a Join was sent for the current lobby.
func (p *Projection) MarkJoinSent() { p.joinSent = true }

// Apply folds one server message into the projection and returns the
// snapshot to push to the interface, if any.
func (p *Projection) Apply(msg wire.ServerToClient) (wire.ClientToInterface, bool) {
	switch m := msg.(type) {
	case wire.Hello:
		if p.phase != phaseIdle {
			return nil, false
		}
		p.settings = m
		p.enterLobby()
		return p.lobbySnapshot(), true

	case wire.AcceptedPlayer:
		if p.phase != phaseLobby {
			return nil, false
		}
		p.players[m.ID] = m.Player
		p.scores[m.ID] = 0
		return p.lobbySnapshot(), true

	case wire.GameStarted:
		if p.phase == phaseActive {
			return nil, false
		}
		for id, player := range m.Players {
			p.players[id] = player
			p.scores[id] = 0
		}
		p.phase = phaseActive
		p.joinSent = false
		return nil, false

	case wire.Turn:
		if p.phase != phaseActive {
			return nil, false
		}
		p.applyTurn(m)
		return p.gameSnapshot(), true

	case wire.GameEnded:
		if p.phase != phaseActive {
			return nil, false
		}
		p.enterLobby()
		return p.lobbySnapshot(), true
	}
	return nil, false
}

func (p *Projection) enterLobby() {
	p.phase = phaseLobby
	p.joinSent = false
	p.turn = 0
	p.players = make(map[wire.PlayerID]wire.Player)
	p.positions = make(map[wire.PlayerID]wire.Position)
	p.scores = make(map[wire.PlayerID]wire.Score)
	p.blocks = make(map[wire.Position]bool)
	p.bombs = make(map[wire.BombID]pendingBomb)
	p.explosions = make(map[wire.Position]bool)
}

// applyTurn folds one turn's event log into the projection. Explosion cell
// sets are re-derived geometrically against the projected blocks, because
// BombExploded only enumerates what was destroyed, not every cell touched.
func (p *Projection) applyTurn(t wire.Turn) {
	for id, bomb := range p.bombs {
		bomb.timer--
		p.bombs[id] = bomb
	}
	p.explosions = make(map[wire.Position]bool)

	destroyedRobots := make(map[wire.PlayerID]bool)
	destroyedBlocks := make(map[wire.Position]bool)

	for _, ev := range t.Events {
		switch e := ev.(type) {
		case wire.BombPlaced:
			p.bombs[e.ID] = pendingBomb{pos: e.Position, timer: p.settings.BombTimer}
		case wire.BombExploded:
			if bomb, ok := p.bombs[e.ID]; ok {
				game.Blast(bomb.pos, p.settings.ExplosionRadius, p.settings.SizeX, p.settings.SizeY,
					func(pos wire.Position) bool { return p.blocks[pos] },
					func(cell wire.Position) { p.explosions[cell] = true })
				delete(p.bombs, e.ID)
			}
			for _, id := range e.RobotsDestroyed {
				destroyedRobots[id] = true
			}
			for _, pos := range e.BlocksDestroyed {
				destroyedBlocks[pos] = true
			}
		case wire.PlayerMoved:
			p.positions[e.ID] = e.Position
		case wire.BlockPlaced:
			p.blocks[e.Position] = true
		}
	}

	for pos := range destroyedBlocks {
		delete(p.blocks, pos)
	}
	for id := range destroyedRobots {
		p.scores[id]++
	}
	p.turn = t.Turn
}

func (p *Projection) lobbySnapshot() wire.Lobby {
	return wire.Lobby{
		ServerName:      p.settings.ServerName,
		PlayersCount:    p.settings.PlayersCount,
		SizeX:           p.settings.SizeX,
		SizeY:           p.settings.SizeY,
		GameLength:      p.settings.GameLength,
		ExplosionRadius: p.settings.ExplosionRadius,
		BombTimer:       p.settings.BombTimer,
		Players:         copyMap(p.players),
	}
}

func (p *Projection) gameSnapshot() wire.Game {
	return wire.Game{
		ServerName:      p.settings.ServerName,
		SizeX:           p.settings.SizeX,
		SizeY:           p.settings.SizeY,
		GameLength:      p.settings.GameLength,
		Turn:            p.turn,
		Players:         copyMap(p.players),
		PlayerPositions: copyMap(p.positions),
		Blocks:          sortedPositions(p.blocks),
		Bombs:           p.sortedBombs(),
		Explosions:      sortedPositions(p.explosions),
		Scores:          copyMap(p.scores),
	}
}

// sortedBombs lists pending bombs in placement order.
func (p *Projection) sortedBombs() []wire.Bomb {
	ids := make([]wire.BombID, 0, len(p.bombs))
	for id := range p.bombs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	bombs := make([]wire.Bomb, 0, len(ids))
	for _, id := range ids {
		b := p.bombs[id]
		bombs = append(bombs, wire.Bomb{Position: b.pos, Timer: b.timer})
	}
	return bombs
}

// sortedPositions flattens a position set in (x, y) order so identical
// projections serialize identically.
func sortedPositions(set map[wire.Position]bool) []wire.Position {
	ps := make([]wire.Position, 0, len(set))
	for pos := range set {
		ps = append(ps, pos)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Y < ps[j].Y
	})
	return ps
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
