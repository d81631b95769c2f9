package common

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/http/middleware"
)

var (
	// ErrUserNotFound пользователь не найден в контексте запроса.
	ErrUserNotFound = errors.New("user is not authenticated")

	// ErrInvalidUUID параметр не является UUID.
	ErrInvalidUUID = errors.New("invalid UUID")
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// CurrentUserID извлекает ID пользователя, установленный AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}

// CurrentRole роль пользователя из контекста.
func CurrentRole(c *gin.Context) (valueobject.Role, error) {
	raw, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return "", ErrUserNotFound
	}

	role, ok := raw.(valueobject.Role)
	if !ok {
		return "", ErrUserNotFound
	}

	return role, nil
}

// ParseUUIDParam разбирает UUID из параметра маршрута.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}
	return parsed, nil
}

// ParseIntQuery целочисленный query параметр с запасным значением.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination limit и offset из query параметров с ограничениями.
func GetPagination(c *gin.Context) repository.Page {
	limit := ParseIntQuery(c, "limit", defaultLimit)
	offset := ParseIntQuery(c, "offset", 0)
	if limit > maxLimit {
		limit = maxLimit
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}
