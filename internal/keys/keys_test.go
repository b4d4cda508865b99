package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestDefaultKeyMap(t *testing.T) {
	k := DefaultKeyMap()

	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, k.Abort))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}, k.Retry))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEsc}, k.Quit))
	assert.False(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, k.Quit))

	assert.Len(t, k.ShortHelp(), 2)
	assert.Len(t, k.FullHelp()[0], 3)
}
