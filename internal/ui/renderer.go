package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/go-bombrobots/internal/wire"
)

// Color palette
var (
	emptyStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(lipgloss.Color("#1a1a2e"))

	blockStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B6914")).
			Foreground(lipgloss.Color("#A0772B"))

	bombStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(lipgloss.Color("#ff4444")).
			Bold(true)

	explosionStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#ff6600")).
			Foreground(lipgloss.Color("#ffcc00")).
			Bold(true)

	playerColors = []lipgloss.Color{
		lipgloss.Color("#00ff88"), // Green
		lipgloss.Color("#4488ff"), // Blue
		lipgloss.Color("#ff44ff"), // Magenta
		lipgloss.Color("#ffff44"), // Yellow
	}

	hudBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff8844")).
			Bold(true)

	lobbyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#44aaff")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))
)

// RenderBoard converts a Game snapshot into a styled terminal grid. The
// board's Y axis grows upward, so row size_y-1 is printed first.
func RenderBoard(g *wire.Game) string {
	robots := make(map[wire.Position][]wire.PlayerID)
	for id, pos := range g.PlayerPositions {
		robots[pos] = append(robots[pos], id)
	}
	for _, ids := range robots {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	explosions := make(map[wire.Position]bool, len(g.Explosions))
	for _, pos := range g.Explosions {
		explosions[pos] = true
	}
	bombs := make(map[wire.Position]bool, len(g.Bombs))
	for _, b := range g.Bombs {
		bombs[b.Position] = true
	}
	blocks := make(map[wire.Position]bool, len(g.Blocks))
	for _, pos := range g.Blocks {
		blocks[pos] = true
	}

	var rows []string
	for y := int(g.SizeY) - 1; y >= 0; y-- {
		var cells []string
		for x := 0; x < int(g.SizeX); x++ {
			pos := wire.Position{X: uint16(x), Y: uint16(y)}
			cells = append(cells, renderCell(pos, robots, explosions, bombs, blocks))
		}
		rows = append(rows, strings.Join(cells, ""))
	}
	return strings.Join(rows, "\n")
}

// renderCell renders one board cell, 2 characters wide.
// Priority: robot > explosion > bomb > block > empty.
func renderCell(
	pos wire.Position,
	robots map[wire.Position][]wire.PlayerID,
	explosions map[wire.Position]bool,
	bombs map[wire.Position]bool,
	blocks map[wire.Position]bool,
) string {
	if ids, ok := robots[pos]; ok {
		id := ids[0]
		style := lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(playerColors[int(id)%len(playerColors)]).
			Bold(true)
		return style.Render(fmt.Sprintf("P%d", id))
	}
	if explosions[pos] {
		return explosionStyle.Render("░░")
	}
	if bombs[pos] {
		return bombStyle.Render("()")
	}
	if blocks[pos] {
		return blockStyle.Render("▒▒")
	}
	return emptyStyle.Render("  ")
}

// RenderHUD renders the in-game sidebar: turn counter and scores.
func RenderHUD(g *wire.Game, myName string) string {
	var parts []string
	parts = append(parts, titleStyle.Render(g.ServerName))
	parts = append(parts, "")
	parts = append(parts, fmt.Sprintf("Turn %d / %d", g.Turn, g.GameLength))
	parts = append(parts, "")
	parts = append(parts, dimStyle.Render("Players:"))

	for _, id := range sortedIDs(g.Players) {
		p := g.Players[id]
		nameStyle := lipgloss.NewStyle().Foreground(playerColors[int(id)%len(playerColors)])
		marker := "  "
		if p.Name == myName {
			marker = "→ "
		}
		parts = append(parts, fmt.Sprintf("%sP%d %s  deaths: %d",
			marker, id, nameStyle.Render(p.Name), g.Scores[id]))
	}

	parts = append(parts, "")
	parts = append(parts, helpStyle.Render("WASD/Arrows: Move | Space: Bomb | B: Block | Q: Quit"))

	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}

// RenderLobby renders the pre-game screen. A nil snapshot means the relay
// has not pushed anything yet.
func RenderLobby(l *wire.Lobby, myName string) string {
	if l == nil {
		return lobbyStyle.Render("Waiting for the client relay...") + "\n" +
			helpStyle.Render("Press any movement key to join once connected.")
	}

	var parts []string
	parts = append(parts, titleStyle.Render(l.ServerName))
	parts = append(parts, "")
	parts = append(parts, lobbyStyle.Render(
		fmt.Sprintf("LOBBY — %d / %d players", len(l.Players), l.PlayersCount)))
	parts = append(parts, "")
	parts = append(parts, dimStyle.Render(fmt.Sprintf("Board %dx%d, %d turns, blast radius %d, bomb timer %d",
		l.SizeX, l.SizeY, l.GameLength, l.ExplosionRadius, l.BombTimer)))
	parts = append(parts, "")

	for _, id := range sortedIDs(l.Players) {
		p := l.Players[id]
		nameStyle := lipgloss.NewStyle().Foreground(playerColors[int(id)%len(playerColors)])
		marker := "  "
		if p.Name == myName {
			marker = "→ "
		}
		parts = append(parts, fmt.Sprintf("%sP%d %s (%s)", marker, id, nameStyle.Render(p.Name), p.Address))
	}

	parts = append(parts, "")
	parts = append(parts, helpStyle.Render("Press any movement key to join | Q: Quit"))

	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}

func sortedIDs(players map[wire.PlayerID]wire.Player) []wire.PlayerID {
	ids := make([]wire.PlayerID, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
