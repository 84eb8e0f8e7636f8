package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

const (
	globalCredentialKey       = "google:oauth:tokens"
	tenantCredentialKeyPrefix = "google:oauth:tokens:"
)

type credentialRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// credentialStore keeps OAuth tokens as JSON under a key chosen by keyFor.
type credentialStore struct {
	client *redis.Client
	keyFor func(tenantID string) (string, error)
}

// NewGlobalCredentialStore stores the single legacy credential. The tenant id
// passed to Load and Save is ignored.
func NewGlobalCredentialStore(client *redis.Client) domain.CredentialStore {
	return &credentialStore{
		client: client,
		keyFor: func(string) (string, error) {
			return globalCredentialKey, nil
		},
	}
}

// NewTenantCredentialStore stores one credential per tenant.
func NewTenantCredentialStore(client *redis.Client) domain.CredentialStore {
	return &credentialStore{
		client: client,
		keyFor: func(tenantID string) (string, error) {
			if tenantID == "" {
				return "", domain.ErrTenantRequired
			}
			return tenantCredentialKeyPrefix + tenantID, nil
		},
	}
}

func (s *credentialStore) Load(ctx context.Context, tenantID string) (*domain.Credential, error) {
	key, err := s.keyFor(tenantID)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, err
	}

	var record credentialRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, ErrInvalidCredentialData
	}
	if record.AccessToken == "" && record.RefreshToken == "" {
		return nil, domain.ErrCredentialNotFound
	}

	return &domain.Credential{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		TokenType:    record.TokenType,
		Expiry:       record.Expiry,
		Scope:        record.Scope,
	}, nil
}

func (s *credentialStore) Save(ctx context.Context, tenantID string, cred *domain.Credential) error {
	if cred == nil {
		return ErrInvalidCredentialData
	}

	key, err := s.keyFor(tenantID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(credentialRecord{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Expiry:       cred.Expiry,
		Scope:        cred.Scope,
	})
	if err != nil {
		return ErrInvalidCredentialData
	}

	return s.client.Set(ctx, key, data, 0).Err()
}
