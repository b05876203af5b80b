// Package settingsdb implements the settings port on top of the settings
// table, with the selector API key stored AES-256-GCM encrypted.
package settingsdb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roundtable-dev/roundtable/internal/domain"
	"github.com/roundtable-dev/roundtable/internal/port/cache"
	"github.com/roundtable-dev/roundtable/internal/port/settings"
)

// SelectorKey is the settings table key for selector configuration.
const SelectorKey = "selector"

const cacheKey = "settings:" + SelectorKey

// Reader is the slice of the persistence layer this adapter needs.
type Reader interface {
	GetSettingValue(ctx context.Context, key string) (json.RawMessage, error)
	UpsertSettingValue(ctx context.Context, key string, value json.RawMessage) error
}

// selectorRecord is the stored shape of the selector settings row.
type selectorRecord struct {
	ModelID         string  `json:"model_id"`
	APIKeyEncrypted string  `json:"api_key_encrypted"` // base64(nonce || ciphertext)
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// Provider reads selector settings from the database, decrypting the API
// key with a key derived from the configured secret. Resolved settings are
// cached briefly: the turn pipeline reads them twice per turn.
type Provider struct {
	reader Reader
	cache  cache.Cache
	key    []byte
	ttl    time.Duration
}

// NewProvider creates a settings provider. cache may be nil.
func NewProvider(reader Reader, c cache.Cache, secret string, ttl time.Duration) *Provider {
	return &Provider{
		reader: reader,
		cache:  c,
		key:    deriveKey(secret),
		ttl:    ttl,
	}
}

// Selector implements settings.Provider.
func (p *Provider) Selector(ctx context.Context) (settings.Selector, error) {
	if p.cache != nil {
		if data, ok, err := p.cache.Get(ctx, cacheKey); err == nil && ok {
			var cached cachedSelector
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached.toSettings(), nil
			}
		}
	}

	raw, err := p.reader.GetSettingValue(ctx, SelectorKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return settings.Selector{}, settings.ErrAPIKeyMissing
		}
		return settings.Selector{}, fmt.Errorf("%w: %v", settings.ErrRead, err)
	}

	var rec selectorRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return settings.Selector{}, fmt.Errorf("%w: malformed selector settings: %v", settings.ErrRead, err)
	}
	if rec.APIKeyEncrypted == "" {
		return settings.Selector{}, settings.ErrAPIKeyMissing
	}

	ciphertext, err := base64.StdEncoding.DecodeString(rec.APIKeyEncrypted)
	if err != nil {
		return settings.Selector{}, fmt.Errorf("%w: %v", settings.ErrAPIKeyDecrypt, err)
	}
	apiKey, err := decrypt(ciphertext, p.key)
	if err != nil {
		return settings.Selector{}, fmt.Errorf("%w: %v", settings.ErrAPIKeyDecrypt, err)
	}

	sel := settings.Selector{
		ModelID:         rec.ModelID,
		APIKey:          string(apiKey),
		Temperature:     rec.Temperature,
		MaxOutputTokens: rec.MaxOutputTokens,
	}
	p.cacheSet(ctx, sel)
	return sel, nil
}

// StoreSelector encrypts the API key and persists the selector settings,
// invalidating the cache.
func (p *Provider) StoreSelector(ctx context.Context, sel settings.Selector) error {
	ciphertext, err := encrypt([]byte(sel.APIKey), p.key)
	if err != nil {
		return fmt.Errorf("encrypt api key: %w", err)
	}
	rec := selectorRecord{
		ModelID:         sel.ModelID,
		APIKeyEncrypted: base64.StdEncoding.EncodeToString(ciphertext),
		Temperature:     sel.Temperature,
		MaxOutputTokens: sel.MaxOutputTokens,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal selector settings: %w", err)
	}
	if err := p.reader.UpsertSettingValue(ctx, SelectorKey, raw); err != nil {
		return fmt.Errorf("store selector settings: %w", err)
	}
	if p.cache != nil {
		_ = p.cache.Delete(ctx, cacheKey)
	}
	return nil
}

// cachedSelector is the cached shape. settings.Selector excludes the API
// key from JSON, so the cache entry carries it explicitly.
type cachedSelector struct {
	ModelID         string  `json:"model_id"`
	APIKey          string  `json:"api_key"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

func (c cachedSelector) toSettings() settings.Selector {
	return settings.Selector{
		ModelID:         c.ModelID,
		APIKey:          c.APIKey,
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
	}
}

func (p *Provider) cacheSet(ctx context.Context, sel settings.Selector) {
	if p.cache == nil {
		return
	}
	// The API key is part of the cached value; keep the TTL short.
	data, err := json.Marshal(cachedSelector{
		ModelID:         sel.ModelID,
		APIKey:          sel.APIKey,
		Temperature:     sel.Temperature,
		MaxOutputTokens: sel.MaxOutputTokens,
	})
	if err != nil {
		return
	}
	_ = p.cache.Set(ctx, cacheKey, data, p.ttl)
}
