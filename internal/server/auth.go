package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"SwapChat/internal/backend"
)

const claimsKey = "auth_claims"

// authMiddleware enforces HS256 bearer tokens when secret is set
func authMiddleware(secret []byte) gin.HandlerFunc {
	if len(secret) == 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	keyFunc := func(*jwt.Token) (any, error) {
		return secret, nil
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		token, err := jwt.Parse(tokenString, keyFunc, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			abortUnauthorized(c, "Invalid or expired JWT")
			return
		}

		c.Set(claimsKey, token.Claims)
		c.Next()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, backend.NewErrorResponse(message))
}
