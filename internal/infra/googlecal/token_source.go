package googlecal

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

// persistingTokenSource writes a token back to the credential store whenever
// the underlying source hands out a new access token.
type persistingTokenSource struct {
	ctx      context.Context
	base     oauth2.TokenSource
	store    domain.CredentialStore
	tenantID string

	mu         sync.Mutex
	lastAccess string
	scope      string
}

func newPersistingTokenSource(ctx context.Context, base oauth2.TokenSource, store domain.CredentialStore, tenantID string, cred *domain.Credential) *persistingTokenSource {
	return &persistingTokenSource{
		ctx:        ctx,
		base:       base,
		store:      store,
		tenantID:   tenantID,
		lastAccess: cred.AccessToken,
		scope:      cred.Scope,
	}
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.AccessToken == s.lastAccess {
		return tok, nil
	}
	s.lastAccess = tok.AccessToken

	cred := fromOAuthToken(tok, s.scope)
	if err := s.store.Save(s.ctx, s.tenantID, cred); err != nil {
		slog.WarnContext(s.ctx, "failed to persist refreshed google token",
			slog.String("tenant_id", s.tenantID),
			slog.String("error", err.Error()),
		)
	} else {
		slog.InfoContext(s.ctx, "persisted refreshed google token",
			slog.String("tenant_id", s.tenantID),
		)
	}

	return tok, nil
}

func toOAuthToken(cred *domain.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Expiry:       cred.Expiry,
	}
}

func fromOAuthToken(tok *oauth2.Token, scope string) *domain.Credential {
	return &domain.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scope:        scope,
	}
}
