package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/purchase-requisition/internal/domain/entity"
)

const actorKey = "actor"

// UserLookup loads the actor named by a token subject
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	Secret []byte
	Issuer string
}

// IssueToken signs an HS256 token for userID
func IssueToken(cfg AuthConfig, userID string, ttl time.Duration, now time.Time) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", errors.New("token secret is required")
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

// parseToken validates the signature, algorithm, expiry and issuer and
// returns the subject
func parseToken(cfg AuthConfig, raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

// actorMiddleware resolves the bearer token to an actor. A missing or
// invalid token leaves the request anonymous.
func actorMiddleware(cfg AuthConfig, users UserLookup, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.Next()
			return
		}

		subject, err := parseToken(cfg, strings.TrimSpace(raw))
		if err != nil {
			logger.Info("Rejected bearer token", "error", err, "path", c.Request.URL.Path)
			c.Next()
			return
		}

		user, err := users.GetByID(c.Request.Context(), subject)
		if err != nil {
			logger.Error("Failed to load actor", "user_id", subject, "error", err)
			c.Next()
			return
		}
		if user != nil {
			c.Set(actorKey, user)
		}
		c.Next()
	}
}

// actorFrom returns the resolved actor, or nil for anonymous requests
func actorFrom(c *gin.Context) *entity.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}
