package handlers

import (
	"errors"
	"net/http"
	"strings"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/logger"
	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError переводит ошибку сервиса в HTTP-ответ; action попадает в "error"
// для неожиданных ошибок.
func respondError(c *gin.Context, err error, action string) {
	status := http.StatusInternalServerError
	code := action

	var fetchErr *clients.FetchError
	switch {
	case errors.Is(err, service.ErrValidation):
		status, code = http.StatusBadRequest, "validation error"
	case errors.Is(err, service.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
		c.Header("WWW-Authenticate", "Bearer")
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.As(err, &fetchErr):
		code = "failed to fetch NEO data"
	}

	if status >= http.StatusInternalServerError {
		logger.Component("http").WithField("path", c.Request.URL.Path).Errorf("%s: %v", action, err)
	}

	c.JSON(status, gin.H{
		"error":   code,
		"message": err.Error(),
	})
}

// respondBindingError отвечает 400 с перечнем полей, не прошедших валидацию.
func respondBindingError(c *gin.Context, err error) {
	message := err.Error()

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, describeFieldError(fe))
		}
		message = strings.Join(fields, "; ")
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation error",
		"message": message,
	})
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte":
		return field + " must be at least " + fe.Param()
	case "lte":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "datetime":
		return field + " must be a date in YYYY-MM-DD format"
	case "neoid":
		return field + " must be a numeric NeoWs id"
	default:
		return field + " is invalid"
	}
}
