// Package settings defines the port supplying selector credentials and
// generation policy. Settings are used only to build the selector request;
// they are not part of the decision logic.
package settings

import (
	"context"
	"errors"
)

// ErrAPIKeyMissing indicates no selector API key is configured.
var ErrAPIKeyMissing = errors.New("selector API key not configured")

// ErrAPIKeyDecrypt indicates the stored API key could not be decrypted.
var ErrAPIKeyDecrypt = errors.New("selector API key decrypt failed")

// ErrRead indicates the settings backend could not be read.
var ErrRead = errors.New("settings read failed")

// Selector holds the credentials and generation policy for selector calls.
type Selector struct {
	ModelID         string  `json:"model_id"`
	APIKey          string  `json:"-"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// Provider is the port interface for settings access.
type Provider interface {
	Selector(ctx context.Context) (Selector, error)
}
