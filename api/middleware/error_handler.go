// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Annany2002/nebula-uploads/api/models"
	"github.com/Annany2002/nebula-uploads/internal/auth"
	"github.com/Annany2002/nebula-uploads/internal/forms"
	"github.com/Annany2002/nebula-uploads/internal/storage"
	"github.com/Annany2002/nebula-uploads/internal/upload"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// Only the last error decides the response.
		err := c.Errors.Last().Err
		entry := customLog.WithFields(logrus.Fields{
			"request_id": CurrentRequestID(c),
			"path":       c.FullPath(),
		})

		var (
			statusCode int
			body       models.ErrorResponse
			fieldErrs  forms.FieldErrors
			validErrs  validator.ValidationErrors
			tooLarge   *http.MaxBytesError
		)

		switch {
		case errors.As(err, &fieldErrs):
			statusCode = http.StatusBadRequest
			body = models.ErrorResponse{Error: "Validation failed. Please check your input.", Fields: fieldErrs}
		case errors.As(err, &tooLarge):
			statusCode = http.StatusRequestEntityTooLarge
			body.Error = fmt.Sprintf("Request body must not exceed %d bytes.", tooLarge.Limit)
		case errors.As(err, &validErrs):
			statusCode = http.StatusBadRequest
			body.Error = "Validation failed. Please check your input."
			for _, fe := range validErrs {
				entry.Debugf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
			}
		case errors.Is(err, upload.ErrUnknownFormat),
			errors.Is(err, storage.ErrDatabaseNotFound):
			statusCode = http.StatusNotFound
			body.Error = err.Error()
		case errors.Is(err, auth.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			body.Error = "Authentication token has expired."
		case errors.Is(err, auth.ErrTokenMalformed),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrTokenClaimsInvalid),
			errors.Is(err, auth.ErrUnexpectedSigningMethod),
			errors.Is(err, auth.ErrUnauthorized):
			statusCode = http.StatusUnauthorized
			body.Error = "Invalid or malformed authentication token."
		case errors.Is(err, auth.ErrForbidden):
			statusCode = http.StatusForbidden
			body.Error = "Admin rights required."
		case errors.Is(err, storage.ErrUserNotFound):
			statusCode = http.StatusNotFound
			body.Error = err.Error()
		case errors.Is(err, storage.ErrEmailExists),
			errors.Is(err, storage.ErrDatabaseExists):
			statusCode = http.StatusConflict
			body.Error = err.Error()
		case errors.Is(err, ErrBadRequest):
			statusCode = http.StatusBadRequest
			body.Error = err.Error()
		default:
			statusCode = http.StatusInternalServerError
			body.Error = "upload could not be processed"
			entry.Errorf("[ErrorHandler] Unhandled error type: %T, Error: %v", err, err)
		}

		if statusCode < http.StatusInternalServerError {
			entry.Infof("[ErrorHandler] %d: %v", statusCode, err)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, body)
		} else {
			entry.Warn("[ErrorHandler] Response already written before handling error.")
		}
	}
}
