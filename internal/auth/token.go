package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bem-health/admin-api/internal/domain"
)

var (
	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenMalformed   = fmt.Errorf("%w: malformed or bad signature", ErrInvalidToken)
	ErrTokenExpired     = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenNotYetValid = fmt.Errorf("%w: not yet valid", ErrInvalidToken)
	ErrWrongTokenType   = fmt.Errorf("%w: wrong token type", ErrInvalidToken)
)

// TokenManager issues and verifies HS256 tokens. It holds no mutable state.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims describes the token payload.
type Claims struct {
	Username string           `json:"username"`
	Role     domain.Role      `json:"role"`
	Type     domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Identity returns the identity the claims carry.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{SubjectID: c.Subject, Username: c.Username, Role: c.Role}
}

// NewTokenManager builds a manager. A missing secret is a configuration
// error and should stop startup.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// TTL returns the configured lifetime for the token type.
func (tm *TokenManager) TTL(typ domain.TokenType) time.Duration {
	if typ == domain.TokenTypeRefresh {
		return tm.refreshTTL
	}
	return tm.accessTTL
}

// Issue signs a token of the given type for id.
func (tm *TokenManager) Issue(id domain.Identity, typ domain.TokenType) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.TTL(typ))
	claims := &Claims{
		Username: id.Username,
		Role:     id.Role,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.SubjectID,
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssuePair signs an access and a refresh token for id.
func (tm *TokenManager) IssuePair(id domain.Identity) (*domain.TokenPair, error) {
	access, accessExp, err := tm.Issue(id, domain.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := tm.Issue(id, domain.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks signature and time claims and returns the access token
// claims. Errors wrap ErrInvalidToken.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	return tm.verifyType(tokenStr, domain.TokenTypeAccess)
}

// VerifyRefresh is Verify for refresh tokens.
func (tm *TokenManager) VerifyRefresh(tokenStr string) (*Claims, error) {
	return tm.verifyType(tokenStr, domain.TokenTypeRefresh)
}

func (tm *TokenManager) verifyType(tokenStr string, want domain.TokenType) (*Claims, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (tm *TokenManager) parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// DecodeUnverified returns the claims without checking the signature or
// expiry. Only for introspection and logging, never for authorization.
func (tm *TokenManager) DecodeUnverified(tokenStr string) (*Claims, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// RemainingSeconds returns the seconds until the token expires, floored at
// zero. ok is false when the token cannot be decoded or has no expiry.
func (tm *TokenManager) RemainingSeconds(tokenStr string) (int64, bool) {
	claims, ok := tm.DecodeUnverified(tokenStr)
	if !ok || claims.ExpiresAt == nil {
		return 0, false
	}
	remaining := int64(claims.ExpiresAt.Time.Sub(tm.now()) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
