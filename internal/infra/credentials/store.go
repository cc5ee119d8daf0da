package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"ugcstudio/internal/infra"
	"ugcstudio/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
)

// Store keeps provider API keys in the database so a deployment can rotate
// them without touching the environment.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// GeminiAPIKey returns the stored Gemini key or "" when none is stored.
func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

// ResolveGeminiAPIKey prefers an explicitly configured key and only consults
// the database when it is empty.
func (s *Store) ResolveGeminiAPIKey(ctx context.Context, configured string) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	if s == nil || s.sql == nil {
		return "", nil
	}
	return s.GeminiAPIKey(ctx)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderCredential, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetGeminiAPIKey stores key along with the models it was validated for.
func (s *Store) SetGeminiAPIKey(ctx context.Context, key string, models ...string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	props := map[string]any{}
	if len(models) > 0 {
		props["models"] = models
	}
	return s.upsert(ctx, ProviderGemini, key, props)
}

// Revoke removes the stored key for provider.
func (s *Store) Revoke(ctx context.Context, provider string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QDeleteProviderCredential, provider)
	return err
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertProviderCredential, provider, token, raw)
	return err
}
