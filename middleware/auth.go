package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"storyfeed-api/types"
)

// AuthorIDKey is the gin context key holding the authenticated author id.
const AuthorIDKey = "authorId"

// AuthMiddleware verifies an HS256 bearer token and stores its authorId
// claim under AuthorIDKey. Tokens are issued elsewhere. Websocket upgrades
// may pass the token as ?access_token= since browsers cannot set headers.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			if t := c.Query("access_token"); t != "" {
				authHeader = "Bearer " + t
			}
		}
		if authHeader == "" {
			abortUnauthorized(c, types.ErrorCodeUnauthorized, "Authorization header required")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, types.ErrorCodeUnauthorized, "Invalid authorization header")
			return
		}
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, types.ErrorCodeInvalidToken, "Invalid token")
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, types.ErrorCodeInvalidToken, "Invalid token claims")
			return
		}
		authorID, ok := claims[AuthorIDKey].(float64)
		if !ok || authorID <= 0 {
			abortUnauthorized(c, types.ErrorCodeInvalidToken, "authorId not found in token")
			return
		}
		c.Set(AuthorIDKey, int(authorID))
		c.Next()
	}
}

// AdminMiddleware guards operator endpoints with a shared X-Admin-Token. An
// empty token disables the endpoints.
func AdminMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Admin token required"))
			return
		}
		c.Next()
	}
}

// SignToken issues a token for authorID. Used by tests and tooling.
func SignToken(secret string, authorID int) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{AuthorIDKey: authorID}).SignedString([]byte(secret))
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, types.NewErrorResponse(code, message))
}
