package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	tokenService = "doughnut"
	tokenAccount = "api_token"
)

// Keychain stores secrets: the macOS Keychain on darwin, a 0600
// credentials.toml under $XDG_DATA_HOME/doughnut elsewhere.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// SystemKeychain is the platform's secret store.
type SystemKeychain struct{}

func (SystemKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (SystemKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// APIToken returns the bearer token guarding the HTTP API, generating and
// storing a new one the first time it is asked for.
func APIToken(kc Keychain) (string, error) {
	if tok, err := kc.Get(tokenService, tokenAccount); err == nil && tok != "" {
		return tok, nil
	}
	tok := uuid.NewString()
	if err := kc.Set(tokenService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
