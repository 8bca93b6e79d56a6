package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// CredentialRepository stores one OAuth2 token per identity provider.
type CredentialRepository struct {
	db       *sql.DB
	provider string
}

// storedToken carries the id token alongside the oauth2 fields, which [oauth2.Token] does not marshal.
type storedToken struct {
	oauth2.Token
	IDToken string `json:"id_token,omitempty"`
}

// NewCredentialRepository creates a [CredentialRepository] keyed by provider (usually the auth domain).
func NewCredentialRepository(db *sql.DB, provider string) *CredentialRepository {
	return &CredentialRepository{db: db, provider: provider}
}

// LoadToken returns the stored token, or nil when none is stored.
func (r *CredentialRepository) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT token FROM credentials WHERE provider = ?`, r.provider).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("failed to decode stored token: %w", err)
	}

	token := &st.Token
	if st.IDToken != "" {
		token = token.WithExtra(map[string]any{"id_token": st.IDToken})
	}
	return token, nil
}

// SaveToken replaces the stored token.
func (r *CredentialRepository) SaveToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("cannot save nil token")
	}

	st := storedToken{Token: *token}
	if id, ok := token.Extra("id_token").(string); ok {
		st.IDToken = id
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	query := `
		INSERT INTO credentials (provider, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, r.provider, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// ClearToken removes the stored token. Clearing an empty store is not an error.
func (r *CredentialRepository) ClearToken(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE provider = ?`, r.provider); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
