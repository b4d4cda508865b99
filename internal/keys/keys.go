package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the interactive prompts.
type KeyMap struct {
	// Abort leaves the prompt from any screen.
	Abort key.Binding

	// Retry reopens the form after a failed sign-in.
	Retry key.Binding

	// Quit leaves a result screen.
	Quit key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Abort: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "abort"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "try again"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "enter"),
			key.WithHelp("q/esc", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown under a failed sign-in.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Retry, k.Quit}
}

// FullHelp returns all keybindings.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Retry, k.Quit, k.Abort},
	}
}
