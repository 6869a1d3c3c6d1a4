package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const UserEmailKey = "userEmail"

// AuthMiddleware validates the bearer session token and stores the
// authenticated user's email (lower-cased) on the request context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	secretKey := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if tokenStr == "" || tokenStr == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "É necessário estar autenticado."})
			return
		}

		claims, err := parseAndValidateToken(tokenStr, secretKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "É necessário estar autenticado."})
			return
		}

		email, _ := claims["email"].(string)
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "É necessário estar autenticado."})
			return
		}

		c.Set(UserEmailKey, email)
		c.Next()
	}
}

func parseAndValidateToken(tokenStr string, secretKey []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GetUserEmail returns the authenticated email set by AuthMiddleware,
// or an empty string when the request is unauthenticated.
func GetUserEmail(c *gin.Context) string {
	if val, exists := c.Get(UserEmailKey); exists {
		if email, ok := val.(string); ok {
			return email
		}
	}
	return ""
}
