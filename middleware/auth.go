package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"permit_flow_app_go/logging"
	"permit_flow_app_go/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	// ContextKeyActor is the context key for the authenticated actor
	ContextKeyActor = "actor"

	bearerPrefix = "Bearer "
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidActor = errors.New("token does not identify a valid actor")
)

// ActorClaims is the payload the identity provider signs for each caller
type ActorClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// RequireAuth rejects requests without a valid HS256 bearer token and
// stores the resolved actor in the context
func RequireAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := extractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			actor, err := ParseActorToken(token, key)
			if err != nil {
				logging.Log.WithError(err).WithField("ip", c.RealIP()).Debug("Rejected bearer token")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(ContextKeyActor, actor)
			return next(c)
		}
	}
}

// GetCurrentActor retrieves the authenticated actor from the context
func GetCurrentActor(c echo.Context) (models.Actor, bool) {
	actor, ok := c.Get(ContextKeyActor).(models.Actor)
	return actor, ok
}

// ParseActorToken validates the signature and expiry of a token and maps its claims to an actor
func ParseActorToken(tokenString string, secret []byte) (models.Actor, error) {
	claims := &ActorClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return models.Actor{}, fmt.Errorf("failed to parse token: %w", err)
	}

	if strings.TrimSpace(claims.Subject) == "" || !models.IsValidRole(claims.Role) {
		return models.Actor{}, errInvalidActor
	}

	return models.Actor{
		ID:    claims.Subject,
		Role:  models.Role(claims.Role),
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}

// IssueActorToken signs a token for the actor, valid for ttl
func IssueActorToken(actor models.Actor, secret []byte, ttl time.Duration) (string, error) {
	if !models.IsValidRole(string(actor.Role)) {
		return "", errInvalidActor
	}
	now := time.Now()
	claims := ActorClaims{
		Role:  string(actor.Role),
		Email: actor.Email,
		Name:  actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func extractBearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}
