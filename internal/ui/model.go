// Package ui is a development interface for the relay: a Bubbletea program
// that renders Lobby and Game snapshots and turns key presses into
// interface intents. It speaks the same datagram protocol as any other
// interface implementation.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/go-bombrobots/internal/wire"
)

// snapshotMsg carries a decoded snapshot from the datagram listener.
type snapshotMsg struct {
	snapshot wire.ClientToInterface
}

// closedMsg signals that the snapshot channel was closed.
type closedMsg struct{}

// Model is the Bubbletea model for the development interface.
type Model struct {
	snapshots  <-chan wire.ClientToInterface
	send       func(wire.InterfaceToClient)
	playerName string

	lobby    *wire.Lobby
	game     *wire.Game
	quitting bool
}

// NewModel creates a model reading snapshots from the given channel and
// sending intents with send.
func NewModel(snapshots <-chan wire.ClientToInterface, send func(wire.InterfaceToClient), playerName string) Model {
	return Model{
		snapshots:  snapshots,
		send:       send,
		playerName: playerName,
	}
}

// Init starts waiting for the first snapshot.
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.snapshots)
}

// Update handles key presses and incoming snapshots.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		switch s := msg.snapshot.(type) {
		case wire.Lobby:
			m.lobby = &s
			m.game = nil
		case wire.Game:
			m.game = &s
			m.lobby = nil
		}
		return m, waitForSnapshot(m.snapshots)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the latest snapshot.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.game != nil {
		board := RenderBoard(m.game)
		hud := RenderHUD(m.game, m.playerName)
		return lipgloss.JoinHorizontal(lipgloss.Top, board, "  ", hud) + "\n"
	}
	return RenderLobby(m.lobby, m.playerName) + "\n"
}

// handleKey maps keyboard input onto interface intents. Any intent doubles
// as the join trigger while the relay is still in the lobby.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "w":
		m.send(wire.Move{Direction: wire.DirUp})
	case "down", "s":
		m.send(wire.Move{Direction: wire.DirDown})
	case "left", "a":
		m.send(wire.Move{Direction: wire.DirLeft})
	case "right", "d":
		m.send(wire.Move{Direction: wire.DirRight})
	case " ":
		m.send(wire.PlaceBomb{})
	case "b":
		m.send(wire.PlaceBlock{})
	}

	return m, nil
}

// waitForSnapshot returns a Cmd that waits for the next snapshot.
func waitForSnapshot(snapshots <-chan wire.ClientToInterface) tea.Cmd {
	return func() tea.Msg {
		snapshot, ok := <-snapshots
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg{snapshot: snapshot}
	}
}
