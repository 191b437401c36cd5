package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryInt читает целый параметр запроса; при ошибке ответ уже отправлен.
func queryInt(c *gin.Context, name string, def, min, max int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation error",
			"message": fmt.Sprintf("%s must be an integer between %d and %d", name, min, max),
		})
		return 0, false
	}
	return value, true
}

func pathUint(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation error",
			"message": fmt.Sprintf("invalid %s", name),
		})
		return 0, false
	}
	return uint(value), true
}
