package middleware

import (
	"errors"
	"net/http"
	"strings"

	"cosmicwatch/internal/models"
	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// AuthRequired пускает дальше только с валидным bearer-токеном активного пользователя.
func AuthRequired(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "Not authenticated")
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrForbidden):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":   "forbidden",
					"message": err.Error(),
				})
			case errors.Is(err, service.ErrUnauthorized):
				unauthorized(c, err.Error())
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "failed to authenticate",
					"message": err.Error(),
				})
			}
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser возвращает пользователя, положенного AuthRequired.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": message,
	})
}
