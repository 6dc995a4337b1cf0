package middleware

import (
	"net/http"
	"strings"

	"github.com/lazypandaa/connect/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const (
	UserIDKey = "user_id"
	ClaimsKey = "claims"
)

// tokenBody - клиент передает токен в поле csrid тела запроса
type tokenBody struct {
	Csrid string `json:"csrid"`
}

// extractToken ищет токен в теле (csrid), в заголовке Authorization и в query.
// Тело кешируется gin, хендлер может прочитать его повторно через ShouldBindBodyWith.
func extractToken(c *gin.Context) string {
	if c.Request.Body != nil && c.Request.Body != http.NoBody &&
		strings.HasPrefix(c.ContentType(), binding.MIMEJSON) {
		var body tokenBody
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil && body.Csrid != "" {
			return body.Csrid
		}
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("csrid")
}

// AuthMiddleware проверяет токен и кладет в контекст id пользователя и claims
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := services.Tokens.Validate(c.Request.Context(), extractToken(c))
		if err != nil {
			if services.IsInvalidToken(err) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"status":  "error",
					"message": services.ErrInvalidToken.Error(),
				})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "internal server error",
			})
			return
		}

		c.Set(UserIDKey, claims.UserID())
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// CurrentClaims возвращает claims, сохраненные AuthMiddleware
func CurrentClaims(c *gin.Context) *services.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*services.Claims); ok {
			return claims
		}
	}
	return nil
}
