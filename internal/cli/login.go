package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/eminus-watch/internal/credential"
	"github.com/nhle/eminus-watch/internal/logger"
	"github.com/nhle/eminus-watch/internal/model"
	"github.com/nhle/eminus-watch/internal/source"
	"github.com/nhle/eminus-watch/internal/ui/login"
)

// Login returns the command that stores portal credentials in the keyring.
func Login() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Verify and store Eminus credentials in the system keyring",
			Long: `Prompt for the Eminus username and password, sign in once to verify them
and store them in the system keyring. Credentials set in the config file or
environment take precedence over the stored ones.`,
			Args: cobra.NoArgs,
		}, nil,
		runLogin,
	)
}

func runLogin(ctx *Context, _ []string) error {
	portal := ctx.newPortal()
	verify := func(vctx context.Context, username, password string) error {
		_, err := portal.Authenticate(vctx, source.Credentials{Username: username, Password: password})
		return err
	}

	username, password, err := login.Run(ctx, ctx.Config.Credentials.Username, verify)
	if errors.Is(err, login.ErrAborted) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := credential.SavePortalLogin(username, password); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("Credentials saved to keyring",
		"username", model.Credentials{Username: username}.MaskedUsername())
	return nil
}

// Logout returns the command that removes stored credentials.
func Logout() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "logout",
			Short: "Remove Eminus credentials from the system keyring",
			Args:  cobra.NoArgs,
		}, nil,
		func(ctx *Context, _ []string) error {
			if err := credential.DeletePortalLogin(); err != nil {
				return err
			}
			logger.FromContext(ctx).Info("Credentials removed from keyring")
			return nil
		},
	)
}
