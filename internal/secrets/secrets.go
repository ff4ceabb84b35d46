// Package secrets resolves API tokens from the environment with an OS
// keychain fallback.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the tracker's secrets in the OS keychain.
const KeyringService = "car-deal-tracker"

// Well-known secret names. Each doubles as the environment variable and the
// keychain account.
const (
	OpenAIAPIKey     = "OPENAI_API_KEY"
	AnthropicAPIKey  = "ANTHROPIC_API_KEY"
	TelegramBotToken = "TELEGRAM_BOT_TOKEN"
)

// ErrNotFound is returned when a secret is neither in the environment nor in
// the keychain.
var ErrNotFound = errors.New("secret not found")

// Get returns the named secret. The environment wins over the keychain.
func Get(name string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, nil
	}

	v, err := keyring.Get(KeyringService, name)
	switch {
	case err == nil && strings.TrimSpace(v) != "":
		return strings.TrimSpace(v), nil
	case err == nil, errors.Is(err, keyring.ErrNotFound):
		return "", fmt.Errorf("%w: %s (set it in the environment or the keychain)", ErrNotFound, name)
	default:
		return "", fmt.Errorf("reading %s from keychain: %w", name, err)
	}
}

// Lookup is Get without the error: a missing or unreadable secret yields "".
func Lookup(name string) string {
	v, _ := Get(name)
	return v
}

// Set stores value in the keychain under name.
func Set(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("secret name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, name, value)
}

// Delete removes name from the keychain.
func Delete(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("secret name is empty")
	}
	return keyring.Delete(KeyringService, name)
}
