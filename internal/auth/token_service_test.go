package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{})
	require.EqualError(t, err, "token: secret must be provided")
}

func TestIssueAndParseSession(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewTokenService(TokenConfig{
		Secret: "super-secret",
		Issuer: "barangay",
		Clock:  func() time.Time { return current },
	})
	require.NoError(t, err)
	require.Equal(t, DefaultSessionTTL, svc.SessionTTL())

	token, err := svc.IssueSession("account-1", " Captain@Example.com ")
	require.NoError(t, err)

	claims, err := svc.ParseSession(token)
	require.NoError(t, err)
	require.Equal(t, "account-1", claims.Subject)
	require.Equal(t, "captain@example.com", claims.Email)
	require.Equal(t, "barangay", claims.Issuer)
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(7*24*time.Hour)))
}

func TestParseSessionRejectsOtherSecret(t *testing.T) {
	issuer, err := NewTokenService(TokenConfig{Secret: "issuer-secret"})
	require.NoError(t, err)
	verifier, err := NewTokenService(TokenConfig{Secret: "other-secret"})
	require.NoError(t, err)

	token, err := issuer.IssueSession("account-1", "a@example.com")
	require.NoError(t, err)

	_, err = verifier.ParseSession(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestParseSessionExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewTokenService(TokenConfig{
		Secret:     "secret",
		SessionTTL: time.Hour,
		Clock:      func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.IssueSession("account-1", "a@example.com")
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, err = svc.ParseSession(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestStateAndSessionTokensAreNotInterchangeable(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	state, err := svc.IssueState("123456", "nonce-1")
	require.NoError(t, err)
	_, err = svc.ParseSession(state)
	require.Error(t, err)

	session, err := svc.IssueSession("account-1", "a@example.com")
	require.NoError(t, err)
	_, err = svc.ParseState(session)
	require.Error(t, err)

	claims, err := svc.ParseState(state)
	require.NoError(t, err)
	require.Equal(t, "123456", claims.InvitationCode)
	require.Equal(t, "nonce-1", claims.Nonce)
}

func TestIssueStateRequiresNonce(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = svc.IssueState("", "")
	require.Error(t, err)
}
