// Package middleware contains the gin middleware chain: signer
// authentication, request correlation, and observability.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/keygate/internal/config"
	"github.com/turtacn/keygate/pkg/constants"
	"github.com/turtacn/keygate/pkg/logger"
)

// extractBearer extracts the token from the Authorization header.
func extractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireSigner verifies the caller's bearer token and places the verified
// signer identity into the request context. The subject claim names the
// signer; every ledger operation authorizes against that identity, so an
// unverified request never reaches a handler.
func RequireSigner(cfg *config.AuthConfig, log logger.Logger) gin.HandlerFunc {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.JWTSecret), nil
	}

	return func(c *gin.Context) {
		tokenStr := extractBearer(c.Request.Header.Get("Authorization"))
		if tokenStr == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
		if cfg.Issuer != "" {
			parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, parserOpts...)
		if err != nil || !token.Valid {
			log.Warn(c.Request.Context(), "signer token rejected", logger.Error(err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		signer, err := claims.GetSubject()
		if err != nil || signer == "" {
			log.Warn(c.Request.Context(), "signer token has no subject")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(string(constants.ContextKeySigner), signer)
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeySigner, signer)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SignerFrom returns the verified signer identity set by RequireSigner.
func SignerFrom(c *gin.Context) string {
	return c.GetString(string(constants.ContextKeySigner))
}
