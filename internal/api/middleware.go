package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Constants for context keys
const (
	ContextActorIDKey   = "actorID"
	ContextActorNameKey = "actorName"
)

// actorClaims is the payload the external identity provider puts in
// its tokens. The engine treats both values as opaque strings; it
// never verifies who the actor is beyond the token signature.
type actorClaims struct {
	ActorID   string `json:"uid"`
	ActorName string `json:"name"`
	jwt.RegisteredClaims
}

// AuthMiddleware creates a Gin middleware that extracts the acting
// user from a Bearer token issued by the identity provider.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}
		tokenString := parts[1]

		claims := &actorClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			}
			return
		}

		if !token.Valid || claims.ActorID == "" {
			abortWithError(c, http.StatusUnauthorized, "Invalid token or missing claims")
			return
		}

		c.Set(ContextActorIDKey, claims.ActorID)
		c.Set(ContextActorNameKey, claims.ActorName)
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// Helper function to get the actor ID from context (used by handlers)
func getActorIDFromContext(c *gin.Context) (string, error) {
	idRaw, exists := c.Get(ContextActorIDKey)
	if !exists {
		return "", errors.New("actor ID not found in context")
	}
	idStr, ok := idRaw.(string)
	if !ok {
		return "", errors.New("invalid actor ID type in context")
	}
	return idStr, nil
}

// Helper function to get the actor display name from context
func getActorNameFromContext(c *gin.Context) string {
	nameRaw, exists := c.Get(ContextActorNameKey)
	if !exists {
		return ""
	}
	name, _ := nameRaw.(string)
	return name
}
