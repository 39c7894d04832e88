// Package keyring stores the secrets questforge needs (the sync API token and
// an optional Postgres connection string) in the OS keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/kverlaine/questforge/internal/constants"
)

var (
	// ErrNotFound is returned when no credential is found in the keyring
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func get(account string) (string, error) {
	val, err := keyring.Get(constants.AppName, account)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrNotFound
		}
		// Wrap other keyring errors as unavailable
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return val, nil
}

func set(account, val string) error {
	if val == "" {
		return errors.New("credential cannot be empty")
	}
	if err := keyring.Set(constants.AppName, account, val); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

func del(account string) error {
	err := keyring.Delete(constants.AppName, account)
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// GetAPIToken retrieves the remote sync API bearer token.
func GetAPIToken() (string, error) { return get(constants.KeyringAPITokenUser) }

// SetAPIToken stores the remote sync API bearer token.
func SetAPIToken(token string) error { return set(constants.KeyringAPITokenUser, token) }

// DeleteAPIToken removes the remote sync API bearer token.
func DeleteAPIToken() error { return del(constants.KeyringAPITokenUser) }

// GetConnectionString retrieves the database connection string.
func GetConnectionString() (string, error) { return get(constants.DefaultKeyringUser) }

// SetConnectionString stores the database connection string.
func SetConnectionString(connStr string) error { return set(constants.DefaultKeyringUser, connStr) }

// DeleteConnectionString removes the database connection string.
func DeleteConnectionString() error { return del(constants.DefaultKeyringUser) }

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	// Try a read; ErrNotFound still proves the keyring answers.
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || err == keyring.ErrNotFound
}
