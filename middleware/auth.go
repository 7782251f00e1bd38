package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"checkout-service/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "role"
)

// AuthMiddleware validates the bearer token and stores the caller's identity
// on the context. Tokens carry the user ID in "sub" ("user_id" also accepted)
// and the role in "role"; a missing role means customer.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
			c.Abort()
			return
		}

		if !strings.HasPrefix(tokenString, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			c.Abort()
			return
		}
		tokenString = tokenString[7:]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			sub, _ = claims["user_id"].(string)
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject"})
			c.Abort()
			return
		}

		role, _ := claims["role"].(string)
		if role == "" {
			role = models.RoleCustomer
		}

		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Next()
	}
}

// GetRequester extracts the authenticated caller from the Gin context.
func GetRequester(c *gin.Context) (models.Requester, error) {
	val, ok := c.Get(UserContextKey)
	if !ok {
		return models.Requester{}, errors.New("user ID not found in context")
	}
	userID, ok := val.(uuid.UUID)
	if !ok {
		return models.Requester{}, errors.New("user ID not found in context")
	}

	role := models.RoleCustomer
	if v, ok := c.Get(RoleContextKey); ok {
		if r, ok := v.(string); ok && r != "" {
			role = r
		}
	}

	return models.Requester{UserID: userID, Role: role}, nil
}
