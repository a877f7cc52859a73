// api/middleware/auth_middleware.go
package middleware

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/auth"
	"github.com/Annany2002/nebula-uploads/internal/domain"
	"github.com/Annany2002/nebula-uploads/internal/storage"
)

// UserContextKey is where AuthMiddleware stores the authenticated *domain.User.
const UserContextKey = "user"

// AuthMiddleware checks the Bearer token and loads the user it names.
// Failures are attached to the context and rendered by ErrorHandler.
func AuthMiddleware(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			_ = c.Error(fmt.Errorf("%w: authorization header required", auth.ErrUnauthorized))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			_ = c.Error(fmt.Errorf("%w: authorization header format must be Bearer {token}", auth.ErrTokenMalformed))
			c.Abort()
			return
		}

		userID, err := auth.ValidateJWT(parts[1], cfg.JWTSecret)
		if err != nil {
			customLog.Printf("AuthMiddleware: Token validation failed: %v", err)
			_ = c.Error(err)
			c.Abort()
			return
		}

		user, err := storage.FindUserByID(c.Request.Context(), db, userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				customLog.Warnf("AuthMiddleware: token names unknown user %d", userID)
				err = fmt.Errorf("%w: %w", auth.ErrUnauthorized, err)
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		customLog.Debugf("AuthMiddleware: authenticated user %d", user.ID)
		c.Set(UserContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(UserContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}
