package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amalg/go-bombrobots/internal/game"
	"github.com/amalg/go-bombrobots/internal/server"
)

// Every option is registered under its long and short name; both count as
// the same flag for the required check.
var flagAliases = map[string]string{
	"b": "bomb-timer",
	"c": "players-count",
	"d": "turn-duration",
	"e": "explosion-radius",
	"k": "initial-blocks",
	"l": "game-length",
	"n": "server-name",
	"p": "port",
	"s": "seed",
	"x": "size-x",
	"y": "size-y",
}

func main() {
	var (
		bombTimer       uint
		playersCount    uint
		turnDuration    uint64
		explosionRadius uint
		initialBlocks   uint
		gameLength      uint
		serverName      string
		port            uint
		seed            uint
		sizeX           uint
		sizeY           uint
	)

	uintOpt := func(p *uint, long, short, usage string) {
		flag.UintVar(p, long, 0, usage)
		flag.UintVar(p, short, 0, usage)
	}
	uintOpt(&bombTimer, "bomb-timer", "b", "turns from bomb placement until detonation")
	uintOpt(&playersCount, "players-count", "c", "exact player count required to start a game")
	flag.Uint64Var(&turnDuration, "turn-duration", 0, "milliseconds between turn ticks")
	flag.Uint64Var(&turnDuration, "d", 0, "milliseconds between turn ticks")
	uintOpt(&explosionRadius, "explosion-radius", "e", "explosion ray length")
	uintOpt(&initialBlocks, "initial-blocks", "k", "random blocks placed at turn 0")
	uintOpt(&gameLength, "game-length", "l", "number of turns to simulate")
	flag.StringVar(&serverName, "server-name", "", "name broadcast in Hello")
	flag.StringVar(&serverName, "n", "", "name broadcast in Hello")
	uintOpt(&port, "port", "p", "TCP listening port")
	uintOpt(&seed, "seed", "s", "RNG seed (defaults to wall clock)")
	uintOpt(&sizeX, "size-x", "x", "board width")
	uintOpt(&sizeY, "size-y", "y", "board height")
	flag.Parse()

	seen := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := flagAliases[name]; ok {
			name = long
		}
		seen[name] = true
	})
	for _, required := range []string{
		"bomb-timer", "players-count", "turn-duration", "explosion-radius",
		"initial-blocks", "game-length", "server-name", "port", "size-x", "size-y",
	} {
		if !seen[required] {
			fatalf("missing required option --%s", required)
		}
	}

	for name, v := range map[string]uint{
		"bomb-timer":       bombTimer,
		"explosion-radius": explosionRadius,
		"initial-blocks":   initialBlocks,
		"game-length":      gameLength,
		"port":             port,
		"size-x":           sizeX,
		"size-y":           sizeY,
	} {
		if v > math.MaxUint16 {
			fatalf("--%s out of range: %d", name, v)
		}
	}
	if playersCount == 0 || playersCount > math.MaxUint8 {
		fatalf("--players-count out of range: %d", playersCount)
	}
	if sizeX == 0 || sizeY == 0 {
		fatalf("board dimensions must be positive")
	}
	if len(serverName) > 255 {
		fatalf("--server-name longer than 255 bytes")
	}
	if seed > math.MaxUint32 {
		fatalf("--seed out of range: %d", seed)
	}
	if !seen["seed"] {
		seed = uint(uint32(time.Now().Unix()))
	}

	settings := game.Settings{
		ServerName:      serverName,
		PlayersCount:    uint8(playersCount),
		TurnDuration:    time.Duration(turnDuration) * time.Millisecond,
		BombTimer:       uint16(bombTimer),
		ExplosionRadius: uint16(explosionRadius),
		InitialBlocks:   uint16(initialBlocks),
		GameLength:      uint16(gameLength),
		SizeX:           uint16(sizeX),
		SizeY:           uint16(sizeY),
		Seed:            uint32(seed),
	}

	srv := server.New(settings)
	if err := srv.Start(uint16(port)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	srv.Stop()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
