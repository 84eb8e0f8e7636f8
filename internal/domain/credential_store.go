package domain

import (
	"context"
	"time"
)

//go:generate mockgen -source=credential_store.go -destination=credential_store_mock.go -package=domain

type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

type CredentialStore interface {
	Load(ctx context.Context, tenantID string) (*Credential, error)
	Save(ctx context.Context, tenantID string, cred *Credential) error
}
