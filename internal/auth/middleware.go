package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/pkg/apperror"
)

const identityKey = "auth_identity"

const (
	msgMissingToken = "missing token"
	msgInvalidToken = "token expired or invalid"
)

// AuthMiddleware validates bearer tokens and attaches the caller identity.
type AuthMiddleware struct {
	tokens *TokenManager
	logger *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// Required rejects requests without a valid access token.
// A header that is present but carries no usable token counts as invalid,
// not missing.
func (m *AuthMiddleware) Required(c *fiber.Ctx) error {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return apperror.Authentication(msgMissingToken)
	}
	token := BearerToken(header)
	if token == "" {
		m.logFailure(c, "", ErrTokenMalformed)
		return apperror.Authentication(msgInvalidToken)
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		m.logFailure(c, token, err)
		return apperror.Authentication(msgInvalidToken)
	}

	c.Locals(identityKey, claims.Identity())
	return c.Next()
}

// Optional attaches an identity when a valid token is present and otherwise
// continues anonymously.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	token := BearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return c.Next()
	}
	claims, err := m.tokens.Verify(token)
	if err != nil {
		m.logFailure(c, token, err)
		return c.Next()
	}
	c.Locals(identityKey, claims.Identity())
	return c.Next()
}

func (m *AuthMiddleware) logFailure(c *fiber.Ctx, token string, err error) {
	if m.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("path", c.Path()),
		zap.String("cause", failureCause(err)),
	}
	if token == "" {
		m.logger.Debug("token rejected", fields...)
		return
	}
	if claims, ok := m.tokens.DecodeUnverified(token); ok {
		fields = append(fields, zap.String("claimed_subject", claims.Subject))
		if claims.ExpiresAt != nil {
			fields = append(fields, zap.Time("claimed_exp", claims.ExpiresAt.Time.UTC().Truncate(time.Second)))
		}
	}
	m.logger.Debug("token rejected", fields...)
}

func failureCause(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrWrongTokenType):
		return "wrong_type"
	default:
		return "malformed"
	}
}

// BearerToken extracts the token from an Authorization header value. A
// bare token without the Bearer prefix is accepted.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	if len(parts) == 1 {
		return header
	}
	return ""
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return domain.Identity{}, false
	}
	id, ok := val.(domain.Identity)
	return id, ok
}
