package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"StudyVault/internal/cli/api"
	"StudyVault/internal/config"

	"golang.org/x/term"
)

type LoginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

// readPassword спрашивает пароль без эха; вне терминала пароль нужно передать аргументом.
var readPassword = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrUsage
	}
	fmt.Fprint(Out, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(Out)
	return string(b), err
}

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Login as admin and store the token" }
func (loginCmd) Usage() string       { return "login [password]" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	var password string
	switch len(args) {
	case 0:
		p, err := readPassword()
		if err != nil {
			return err
		}
		password = p
	case 1:
		password = args[0]
	default:
		return ErrUsage
	}
	var resp loginResponse
	err := api.PostJSON(ctx, endpoint(cfg, "auth", "login"), LoginRequest{Password: password}, "", &resp)
	if api.IsStatus(err, http.StatusUnauthorized) {
		return errors.New("invalid password")
	}
	if err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return errors.New("server returned no token")
	}
	if err := newTokenStore(cfg).Save(resp.AccessToken); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	fmt.Fprintf(Out, "Logged in successfully (token expires %s)\n", resp.ExpiresAt)
	return nil
}

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "Forget the stored token" }
func (logoutCmd) Usage() string       { return "logout" }

func (logoutCmd) Run(_ context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if err := newTokenStore(cfg).Clear(); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Logged out")
	return nil
}

func init() {
	RegisterCmd(loginCmd{})
	RegisterCmd(logoutCmd{})
}
