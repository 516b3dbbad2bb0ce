package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

const actorKey = "actor"

// AuthConfig configures bearer token verification
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// IssueToken signs an HS256 token whose subject is userID
func IssueToken(cfg AuthConfig, userID string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		Issuer:   cfg.Issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// authenticate verifies token and returns its subject
func authenticate(cfg AuthConfig, token string) (string, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return "", errors.New("jwt secret not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("subject claim required")
	}
	return claims.Subject, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// authMiddleware resolves the bearer token to an actor. Roles are read from
// the role store on every request so revocations apply immediately.
func authMiddleware(cfg AuthConfig, roles port.RoleRepository, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthenticated(c, "authentication required")
			return
		}

		userID, err := authenticate(cfg, token)
		if err != nil {
			logger.Info("Rejected bearer token", "error", err, "client_ip", c.ClientIP())
			abortUnauthenticated(c, "invalid credentials")
			return
		}

		set, err := roles.RolesFor(c.Request.Context(), userID)
		if err != nil {
			logger.Error("Failed to resolve roles", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Code:    "internal",
				Error:   "failed to resolve identity",
			})
			return
		}

		c.Set(actorKey, workflow.Actor{ID: userID, Roles: set})
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
		Success: false,
		Code:    "unauthenticated",
		Error:   msg,
	})
}

// actorFrom returns the actor set by authMiddleware
func actorFrom(c *gin.Context) workflow.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(workflow.Actor); ok {
			return actor
		}
	}
	panic(fmt.Sprintf("no actor on request %s", c.Request.URL.Path))
}
