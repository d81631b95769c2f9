package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/http/response"
)

// UUIDValidator проверяет, что параметры маршрута являются валидными UUID.
// Использование: router.GET("/incidents/:id", UUIDValidator("id"), handler.Get)
func UUIDValidator(paramNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range paramNames {
			if _, err := uuid.Parse(c.Param(name)); err != nil {
				response.BadRequest(c, "parameter "+name+" must be a valid UUID")
				return
			}
		}
		c.Next()
	}
}
