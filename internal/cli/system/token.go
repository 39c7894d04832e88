package system

import (
	"fmt"

	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/keyring"
)

// TokenSetCmd stores the sync API bearer token in the OS keyring.
type TokenSetCmd struct {
	Token string `arg:"" help:"API bearer token for the remote sync service."`
}

func (c *TokenSetCmd) Run(_ *cli.Context) error {
	if err := keyring.SetAPIToken(c.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	fmt.Println("Token stored in the OS keyring.")
	return nil
}

type TokenClearCmd struct{}

func (c *TokenClearCmd) Run(_ *cli.Context) error {
	if err := keyring.DeleteAPIToken(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	fmt.Println("Token removed from the OS keyring.")
	return nil
}

type TokenStatusCmd struct{}

func (c *TokenStatusCmd) Run(_ *cli.Context) error {
	if _, err := keyring.GetAPIToken(); err != nil {
		fmt.Println("No token stored; remote calls run unauthenticated.")
		return nil
	}
	fmt.Println("A token is stored in the OS keyring.")
	return nil
}
