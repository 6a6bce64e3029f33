package client

import (
	"reflect"
	"testing"

	"github.com/amalg/go-bombrobots/internal/wire"
)

func testHello() wire.Hello {
	return wire.Hello{
		ServerName:      "srv",
		PlayersCount:    2,
		SizeX:           5,
		SizeY:           5,
		GameLength:      10,
		ExplosionRadius: 2,
		BombTimer:       3,
	}
}

func applyLobby(t *testing.T, p *Projection, msg wire.ServerToClient) wire.Lobby {
	t.Helper()
	snapshot, ok := p.Apply(msg)
	if !ok {
		t.Fatalf("no snapshot for %#v", msg)
	}
	lobby, ok := snapshot.(wire.Lobby)
	if !ok {
		t.Fatalf("snapshot for %#v is %T, want Lobby", msg, snapshot)
	}
	return lobby
}

func applyGame(t *testing.T, p *Projection, msg wire.ServerToClient) wire.Game {
	t.Helper()
	snapshot, ok := p.Apply(msg)
	if !ok {
		t.Fatalf("no snapshot for %#v", msg)
	}
	game, ok := snapshot.(wire.Game)
	if !ok {
		t.Fatalf("snapshot for %#v is %T, want Game", msg, snapshot)
	}
	return game
}

// startProjection brings a projection into the active phase with two
// players at known positions.
func startProjection(t *testing.T, p *Projection) {
	t.Helper()
	if _, ok := p.Apply(testHello()); !ok {
		t.Fatal("Hello produced no snapshot")
	}
	if _, ok := p.Apply(wire.GameStarted{Players: map[wire.PlayerID]wire.Player{
		0: {Name: "a", Address: "x:1"},
		1: {Name: "b", Address: "y:2"},
	}}); ok {
		t.Fatal("GameStarted must not produce a snapshot")
	}
	if !p.InGame() {
		t.Fatal("not in game after GameStarted")
	}
}

func TestNoSnapshotBeforeHello(t *testing.T) {
	p := NewProjection()
	if _, ok := p.Apply(wire.Turn{Turn: 0}); ok {
		t.Error("Turn before Hello produced a snapshot")
	}
	if _, ok := p.Apply(wire.AcceptedPlayer{}); ok {
		t.Error("AcceptedPlayer before Hello produced a snapshot")
	}
	if p.InLobby() || p.InGame() {
		t.Error("projection left idle state without Hello")
	}
}

func TestHelloSeedsLobby(t *testing.T) {
	p := NewProjection()
	lobby := applyLobby(t, p, testHello())
	if lobby.ServerName != "srv" || lobby.PlayersCount != 2 || lobby.BombTimer != 3 {
		t.Errorf("lobby settings = %#v", lobby)
	}
	if len(lobby.Players) != 0 {
		t.Errorf("fresh lobby has players: %#v", lobby.Players)
	}
	if !p.InLobby() {
		t.Error("not in lobby after Hello")
	}
}

func TestAcceptedPlayerGrowsLobby(t *testing.T) {
	p := NewProjection()
	applyLobby(t, p, testHello())
	lobby := applyLobby(t, p, wire.AcceptedPlayer{
		ID:     0,
		Player: wire.Player{Name: "a", Address: "x:1"},
	})
	want := map[wire.PlayerID]wire.Player{0: {Name: "a", Address: "x:1"}}
	if !reflect.DeepEqual(lobby.Players, want) {
		t.Errorf("lobby players = %#v, want %#v", lobby.Players, want)
	}
}

func TestTurnBuildsGameSnapshot(t *testing.T) {
	p := NewProjection()
	startProjection(t, p)

	game := applyGame(t, p, wire.Turn{Turn: 0, Events: []wire.Event{
		wire.PlayerMoved{ID: 0, Position: wire.Position{X: 1, Y: 1}},
		wire.PlayerMoved{ID: 1, Position: wire.Position{X: 3, Y: 3}},
		wire.BlockPlaced{Position: wire.Position{X: 2, Y: 2}},
	}})

	if game.Turn != 0 {
		t.Errorf("turn = %d, want 0", game.Turn)
	}
	wantPositions := map[wire.PlayerID]wire.Position{
		0: {X: 1, Y: 1},
		1: {X: 3, Y: 3},
	}
	if !reflect.DeepEqual(game.PlayerPositions, wantPositions) {
		t.Errorf("positions = %#v, want %#v", game.PlayerPositions, wantPositions)
	}
	if !reflect.DeepEqual(game.Blocks, []wire.Position{{X: 2, Y: 2}}) {
		t.Errorf("blocks = %#v", game.Blocks)
	}
	if !reflect.DeepEqual(game.Scores, map[wire.PlayerID]wire.Score{0: 0, 1: 0}) {
		t.Errorf("scores = %#v", game.Scores)
	}
}

// The server never sends bomb timers; the client assumes BombTimer from
// Hello and counts down one per turn.
func TestPendingBombTimerCountsDown(t *testing.T) {
	p := NewProjection()
	startProjection(t, p)

	game := applyGame(t, p, wire.Turn{Turn: 0, Events: []wire.Event{
		wire.BombPlaced{ID: 0, Position: wire.Position{X: 2, Y: 2}},
	}})
	want := []wire.Bomb{{Position: wire.Position{X: 2, Y: 2}, Timer: 3}}
	if !reflect.DeepEqual(game.Bombs, want) {
		t.Fatalf("bombs = %#v, want %#v", game.Bombs, want)
	}

	game = applyGame(t, p, wire.Turn{Turn: 1})
	want = []wire.Bomb{{Position: wire.Position{X: 2, Y: 2}, Timer: 2}}
	if !reflect.DeepEqual(game.Bombs, want) {
		t.Fatalf("bombs after one turn = %#v, want %#v", game.Bombs, want)
	}
}

// The explosion cell set is re-derived geometrically against the client's
// own blocks; the event only names what was destroyed.
func TestBombExplodedRederivesExplosion(t *testing.T) {
	p := NewProjection()
	startProjection(t, p)

	applyGame(t, p, wire.Turn{Turn: 0, Events: []wire.Event{
		wire.PlayerMoved{ID: 0, Position: wire.Position{X: 0, Y: 0}},
		wire.PlayerMoved{ID: 1, Position: wire.Position{X: 4, Y: 4}},
		wire.BlockPlaced{Position: wire.Position{X: 2, Y: 3}},
		wire.BombPlaced{ID: 0, Position: wire.Position{X: 2, Y: 2}},
	}})

	game := applyGame(t, p, wire.Turn{Turn: 1, Events: []wire.Event{
		wire.BombExploded{
			ID:              0,
			RobotsDestroyed: []wire.PlayerID{},
			BlocksDestroyed: []wire.Position{{X: 2, Y: 3}},
		},
	}})

	// Radius 2 from (2,2); the up-ray stops at the block (2,3).
	wantExplosions := []wire.Position{
		{X: 0, Y: 2},
		{X: 1, Y: 2},
		{X: 2, Y: 0}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 2, Y: 3},
		{X: 3, Y: 2},
		{X: 4, Y: 2},
	}
	if !reflect.DeepEqual(game.Explosions, wantExplosions) {
		t.Errorf("explosions = %#v, want %#v", game.Explosions, wantExplosions)
	}
	if len(game.Blocks) != 0 {
		t.Errorf("destroyed block still present: %#v", game.Blocks)
	}
	if len(game.Bombs) != 0 {
		t.Errorf("exploded bomb still pending: %#v", game.Bombs)
	}
}

func TestDestroyedRobotsScore(t *testing.T) {
	p := NewProjection()
	startProjection(t, p)

	applyGame(t, p, wire.Turn{Turn: 0, Events: []wire.Event{
		wire.BombPlaced{ID: 0, Position: wire.Position{X: 1, Y: 1}},
	}})
	game := applyGame(t, p, wire.Turn{Turn: 1, Events: []wire.Event{
		wire.BombExploded{
			ID:              0,
			RobotsDestroyed: []wire.PlayerID{1},
			BlocksDestroyed: []wire.Position{},
		},
		wire.PlayerMoved{ID: 1, Position: wire.Position{X: 0, Y: 4}},
	}})

	if game.Scores[1] != 1 {
		t.Errorf("score of destroyed robot = %d, want 1", game.Scores[1])
	}
	if game.Scores[0] != 0 {
		t.Errorf("score of surviving robot = %d, want 0", game.Scores[0])
	}
	if pos := game.PlayerPositions[1]; pos != (wire.Position{X: 0, Y: 4}) {
		t.Errorf("respawn position = %v, want (0,4)", pos)
	}
}

func TestGameEndedReturnsToLobby(t *testing.T) {
	p := NewProjection()
	startProjection(t, p)
	p.MarkJoinSent()

	snapshot, ok := p.Apply(wire.GameEnded{Scores: map[wire.PlayerID]wire.Score{0: 1, 1: 2}})
	if !ok {
		t.Fatal("GameEnded produced no snapshot")
	}
	if _, isLobby := snapshot.(wire.Lobby); !isLobby {
		t.Fatalf("snapshot after GameEnded is %T, want Lobby", snapshot)
	}
	if !p.InLobby() {
		t.Error("not back in lobby after GameEnded")
	}
	if p.JoinSent() {
		t.Error("join-sent flag survived GameEnded")
	}
}

func TestJoinSentLifecycle(t *testing.T) {
	p := NewProjection()
	p.Apply(testHello())
	if p.JoinSent() {
		t.Fatal("fresh lobby reports join sent")
	}
	p.MarkJoinSent()
	if !p.JoinSent() {
		t.Fatal("MarkJoinSent did not stick")
	}
	p.Apply(wire.GameStarted{Players: map[wire.PlayerID]wire.Player{0: {}}})
	if p.JoinSent() {
		t.Error("join-sent flag survived GameStarted")
	}
}
