// api/models/auth_models.go
package models

import "github.com/golang-jwt/jwt/v5"

// CustomClaims includes standard claims and our custom userID claim for JWT
type CustomClaims struct {
	UserID int64 `json:"userID"`
	jwt.RegisteredClaims
}
