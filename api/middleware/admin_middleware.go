// api/middleware/admin_middleware.go
package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-uploads/internal/auth"
)

// RequireAdmin lets only admins through. It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			_ = c.Error(fmt.Errorf("%w: admin rights required", auth.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}
