package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultSessionTTL is the sliding session lifetime and the identity staleness window.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// DefaultStateTTL bounds the time between login redirect and provider callback.
	DefaultStateTTL = 10 * time.Minute

	sessionAudience = "session"
	stateAudience   = "oauth-state"
)

// TokenConfig bundles the configuration required to build a TokenService.
type TokenConfig struct {
	Secret     string
	Issuer     string
	SessionTTL time.Duration
	StateTTL   time.Duration
	Clock      func() time.Time
}

// SessionClaims is carried by the access_token cookie.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// StateClaims round-trips the login context through the identity provider.
type StateClaims struct {
	InvitationCode string `json:"inv,omitempty"`
	Nonce          string `json:"nonce"`
	jwt.RegisteredClaims
}

// TokenService issues and validates the HS256 tokens used for sessions and OAuth state.
type TokenService struct {
	secret     []byte
	issuer     string
	sessionTTL time.Duration
	stateTTL   time.Duration
	now        func() time.Time
}

// NewTokenService constructs a TokenService instance when provided with the required configuration.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: secret must be provided")
	}

	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	stateTTL := cfg.StateTTL
	if stateTTL <= 0 {
		stateTTL = DefaultStateTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		sessionTTL: sessionTTL,
		stateTTL:   stateTTL,
		now:        now,
	}, nil
}

// SessionTTL reports the configured session lifetime.
func (s *TokenService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// StateTTL reports how long a login redirect may take to come back.
func (s *TokenService) StateTTL() time.Duration {
	return s.stateTTL
}

// IssueSession signs a session token for the account.
func (s *TokenService) IssueSession(accountID, email string) (string, error) {
	if accountID == "" {
		return "", errors.New("token: account id is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("token: email is required")
	}

	now := s.now()
	claims := &SessionClaims{
		Email:            email,
		RegisteredClaims: s.registered(accountID, sessionAudience, now, s.sessionTTL),
	}
	return s.sign(claims)
}

// ParseSession validates a session token and returns its claims.
func (s *TokenService) ParseSession(token string) (*SessionClaims, error) {
	var claims SessionClaims
	if err := s.parse(token, sessionAudience, &claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("token: missing session claims")
	}
	return &claims, nil
}

// IssueState signs an OAuth state value carrying an optional invitation code.
func (s *TokenService) IssueState(invitationCode, nonce string) (string, error) {
	if nonce == "" {
		return "", errors.New("token: nonce is required")
	}
	now := s.now()
	claims := &StateClaims{
		InvitationCode:   strings.TrimSpace(invitationCode),
		Nonce:            nonce,
		RegisteredClaims: s.registered("", stateAudience, now, s.stateTTL),
	}
	return s.sign(claims)
}

// ParseState validates an OAuth state value.
func (s *TokenService) ParseState(token string) (*StateClaims, error) {
	var claims StateClaims
	if err := s.parse(token, stateAudience, &claims); err != nil {
		return nil, err
	}
	if claims.Nonce == "" {
		return nil, errors.New("token: missing state nonce")
	}
	return &claims, nil
}

func (s *TokenService) registered(subject, audience string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(tokenString, audience string, claims jwt.Claims) error {
	if tokenString == "" {
		return errors.New("token: token string is empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithAudience(audience),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("token: parse: %w", err)
	}
	return nil
}
