package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/citesignal-backend/internal/http/response"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
)

// ErrorHandler централизованно отвечает на ошибки, добавленные хэндлерами через c.Error.
// Внутренние ошибки логируются целиком, клиент получает только код и безопасное сообщение.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		entry := logger.L().WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		}).WithError(err)
		if userID, ok := c.Get(ContextUserIDKey); ok {
			entry = entry.WithField("user_id", userID)
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
			entry.Info("request rejected")
		} else {
			entry.Error("request error")
		}

		if c.Writer.Written() {
			return
		}
		response.Error(c, err)
	}
}
