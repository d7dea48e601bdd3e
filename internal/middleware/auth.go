package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
)

// Context keys set by JWTAuth for downstream handlers.
const (
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
	CtxUserRole  = "userRole"
)

// JWTAuth verifies the Bearer token and stores the user's id, email and
// role in the request context.
func JWTAuth(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Malformed Authorization header"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		})
		if err != nil {
			errorMsg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				errorMsg = "Token has expired"
			} else if errors.Is(err, jwt.ErrTokenMalformed) {
				errorMsg = "Malformed token"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": errorMsg})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		userID, okID := claims["user_id"].(string)
		email, okEmail := claims["email"].(string)
		role, okRole := claims["role"].(string)
		if !okID || !okEmail || !okRole {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set(CtxUserID, userID)
		c.Set(CtxUserEmail, email)
		c.Set(CtxUserRole, role)

		c.Next()
	}
}

// CurrentUser reconstructs the authenticated user from the context values
// set by JWTAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	id, okID := c.Get(CtxUserID)
	email, okEmail := c.Get(CtxUserEmail)
	role, okRole := c.Get(CtxUserRole)
	if !okID || !okEmail || !okRole {
		return nil, false
	}
	return &models.User{
		ID:    id.(string),
		Email: email.(string),
		Role:  role.(string),
	}, true
}

// AdminOnly rejects requests from users without the admin role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxUserRole)
		if !exists || role.(string) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied. Admin rights required."})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ManagerOrAdminOnly rejects requests from users who are neither managers
// nor admins.
func ManagerOrAdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxUserRole)
		hasAccess := exists && (role.(string) == models.RoleAdmin || role.(string) == models.RoleManager)
		if !hasAccess {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied. Manager or admin rights required."})
			c.Abort()
			return
		}
		c.Next()
	}
}
