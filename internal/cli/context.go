package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/eminus-watch/internal/credential"
	"github.com/nhle/eminus-watch/internal/logger"
	"github.com/nhle/eminus-watch/internal/model"
	"github.com/nhle/eminus-watch/internal/notify"
	"github.com/nhle/eminus-watch/internal/source"
	"github.com/nhle/eminus-watch/internal/source/eminus"
	"github.com/nhle/eminus-watch/internal/store"
	"github.com/nhle/eminus-watch/internal/sync"
)

// keyringLogin reads credentials saved by the login command. Tests replace it.
var keyringLogin = credential.PortalLogin

// Context holds what a command needs: its cobra command, the loaded
// configuration and a logger carried by the embedded context.
type Context struct {
	context.Context

	Command *cobra.Command
	Config  *model.AppConfig

	closers []func() error
}

// NewContext loads the dotenv file and configuration and sets up the logger.
func NewContext(cmd *cobra.Command) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	envFile, err := cmd.Flags().GetString(envFileFlag.name)
	if err != nil {
		return nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if err := model.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfgPath, err := cmd.Flags().GetString(configFlag.name)
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if debug, _ := cmd.Flags().GetBool(debugFlag.name); debug {
		cfg.Log.Debug = true
	}
	if format, _ := cmd.Flags().GetString(logFormatFlag.name); format != "" {
		cfg.Log.Format = format
	}

	c := &Context{Context: ctx, Command: cmd, Config: cfg}
	if err := c.setupLogger(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) setupLogger() error {
	opts := []logger.Option{
		logger.WithFormat(c.Config.Log.Format),
		logger.WithConsole(c.Command.ErrOrStderr()),
	}
	if c.Config.Log.Debug {
		opts = append(opts, logger.WithDebug())
	}

	if path := c.Config.Log.File; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		c.closers = append(c.closers, f.Close)
		opts = append(opts, logger.WithWriter(f))
	}

	c.Context = logger.WithLogger(c.Context, logger.NewLogger(opts...))
	return nil
}

// Close releases the resources opened for the command, in reverse order.
func (c *Context) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

// credentials returns the configured portal login, completing missing
// values from the keyring.
func (c *Context) credentials() source.Credentials {
	creds := c.Config.Credentials
	if !creds.Complete() {
		username, password, err := keyringLogin()
		if err != nil {
			logger.FromContext(c).Debug("Keyring unavailable", "err", err)
		}
		if creds.Username == "" {
			creds.Username = username
		}
		if creds.Password == "" {
			creds.Password = password
		}
	}
	return source.Credentials{Username: creds.Username, Password: creds.Password}
}

// reportStartup logs which credentials and channels are present without
// revealing them.
func (c *Context) reportStartup(creds source.Credentials) {
	log := logger.FromContext(c)
	masked := model.Credentials{Username: creds.Username}.MaskedUsername()
	log.Info("Configuration check",
		"username", masked,
		"password_set", creds.Password != "",
		"channels", c.Config.Notify.Channels(),
		"state_backend", c.Config.State.Backend,
	)
	if !c.Config.Notify.AnyChannel() {
		log.Warn("No notification channel configured, notifications will be skipped")
	}
}

func (c *Context) newPortal() source.Portal {
	client := eminus.NewClient(c.Config.Portal.BaseURL, c.Config.Portal.Timeout,
		eminus.WithClientLogger(logger.FromContext(c)))
	return eminus.NewAdapter(client, c.Config.Location(), c.Config.Windows.RecentMonths)
}

func (c *Context) openStore() (store.SetStore, error) {
	st, err := store.Open(c, c.Config.State)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, st.Close)
	return st, nil
}

func (c *Context) newRunner(st store.SetStore) (*sync.Runner, error) {
	dispatcher, err := notify.FromConfig(c.Config.Notify)
	if err != nil {
		return nil, fmt.Errorf("configuring notifications: %w", err)
	}

	creds := c.credentials()
	c.reportStartup(creds)

	cfg := c.Config
	return sync.NewRunner(c.newPortal(), st, dispatcher, creds,
		sync.RunnerConfig{
			ReminderWindowMinutes: cfg.Windows.ReminderMinutes,
			Parallelism:           cfg.Notify.Parallelism,
			NotifyTimeout:         cfg.Notify.Timeout,
		},
		sync.WithFormatter(notify.NewFormatter(cfg.Notify.Locale, cfg.Location())),
	), nil
}

// NewCommand attaches flags to cmd and runs runFunc with a prepared Context.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(ctx *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if err := ctx.Close(); err != nil {
				logger.FromContext(ctx).Warn("Failed to release resources", "err", err)
			}
		}()
		return runFunc(ctx, args)
	}

	return cmd
}
