// Package login implements the interactive credential prompt used by the
// login command. The entered credentials are verified against the portal
// before they are handed back for storage.
package login

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/eminus-watch/internal/keys"
	"github.com/nhle/eminus-watch/internal/theme"
)

// VerifyFunc checks a username and password, typically by authenticating
// against the portal.
type VerifyFunc func(ctx context.Context, username, password string) error

// Mode is the current screen of the login view.
type Mode int

const (
	ModeForm      Mode = iota // Entering credentials
	ModeVerifying             // Waiting for the portal
	ModeDone                  // Verified
	ModeFailed                // Verification failed, waiting for retry or quit
	ModeAborted               // User quit
)

// verifiedMsg carries the result of a verification attempt.
type verifiedMsg struct {
	err error
}

// Model is the Bubble Tea model for the login prompt.
type Model struct {
	ctx     context.Context
	verify  VerifyFunc
	mode    Mode
	form    *huh.Form
	spinner spinner.Model
	keys    *keys.KeyMap
	help    help.Model
	err     error

	// fields is shared by every copy of the model so the form's bindings
	// stay valid across Update calls.
	fields *fields
}

type fields struct {
	username string
	password string
}

// New creates a login model. Username pre-fills the first field.
func New(ctx context.Context, username string, verify VerifyFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:     ctx,
		verify:  verify,
		spinner: sp,
		keys:    keys.DefaultKeyMap(),
		help:    help.New(),
		fields:  &fields{username: username},
	}
	m.form = m.buildForm()
	return m
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Usuario").
				Description("Your Eminus username, e.g. zs21012345").
				Value(&m.fields.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Contraseña").
				Description("Stored in the system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&m.fields.password).
				Validate(validateRequired("Password")),
		),
	)
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages based on the current mode.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Abort) {
			m.mode = ModeAborted
			return m, tea.Quit
		}
		if m.mode == ModeFailed {
			return m.handleFailedKeys(msg)
		}

	case verifiedMsg:
		m.err = msg.err
		if msg.err != nil {
			m.mode = ModeFailed
			return m, nil
		}
		m.mode = ModeDone
		return m, tea.Quit

	case spinner.TickMsg:
		if m.mode == ModeVerifying {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.mode != ModeForm {
		return m, nil
	}
	return m.updateForm(msg)
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.fields.username = strings.TrimSpace(m.fields.username)
		m.mode = ModeVerifying
		return m, tea.Batch(m.spinner.Tick, m.verifyCmd())
	case huh.StateAborted:
		m.mode = ModeAborted
		return m, tea.Quit
	}

	return m, cmd
}

// handleFailedKeys lets the user reopen the form or give up after a failed
// sign-in. The username is kept; the password is cleared.
func (m Model) handleFailedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Retry):
		m.fields.password = ""
		m.err = nil
		m.mode = ModeForm
		m.form = m.buildForm()
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) verifyCmd() tea.Cmd {
	ctx, verify := m.ctx, m.verify
	username, password := m.fields.username, m.fields.password
	return func() tea.Msg {
		if verify == nil {
			return verifiedMsg{}
		}
		return verifiedMsg{err: verify(ctx, username, password)}
	}
}

// View renders the current screen.
func (m Model) View() string {
	style := lipgloss.NewStyle().Padding(1, 2)

	switch m.mode {
	case ModeVerifying:
		return style.Render(fmt.Sprintf("%s Signing in to Eminus...", m.spinner.View()))
	case ModeDone:
		return style.Render(theme.OKStyle.Render("Signed in") + "\n\n" +
			fmt.Sprintf("Credentials for %s verified.", m.fields.username))
	case ModeFailed:
		return style.Render(theme.FailStyle.Render("Sign-in failed") + "\n\n" +
			m.err.Error() + "\n\n" + m.help.View(m.keys))
	case ModeAborted:
		return ""
	default:
		return style.Render(theme.HeaderStyle.Render("Eminus login") + "\n\n" + m.form.View())
	}
}

// Mode returns the current screen.
func (m Model) Mode() Mode { return m.mode }

// Credentials returns the entered username and password.
func (m Model) Credentials() (username, password string) {
	return m.fields.username, m.fields.password
}

// Err returns the verification error, if any.
func (m Model) Err() error { return m.err }

// ErrAborted is returned by Run when the user quits the prompt.
var ErrAborted = errors.New("login aborted")

// Run shows the prompt and returns verified credentials.
func Run(ctx context.Context, username string, verify VerifyFunc) (string, string, error) {
	final, err := tea.NewProgram(New(ctx, username, verify), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", "", fmt.Errorf("running login prompt: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return "", "", fmt.Errorf("unexpected login model %T", final)
	}

	switch m.Mode() {
	case ModeDone:
		user, pass := m.Credentials()
		return user, pass, nil
	case ModeFailed:
		return "", "", m.Err()
	default:
		return "", "", ErrAborted
	}
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
