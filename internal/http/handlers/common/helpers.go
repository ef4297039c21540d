package common

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/http/middleware"
	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-reviews/internal/validation"
)

// CurrentUserID извлекает пользователя, которого положил AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	return userID, nil
}

// OptionalUserID возвращает пользователя из контекста или uuid.Nil для анонимного запроса.
func OptionalUserID(c *gin.Context) uuid.UUID {
	userID, _ := c.Get(middleware.ContextUserIDKey)
	id, _ := userID.(uuid.UUID)
	return id
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("параметр " + name + " должен быть валидным UUID")
	}
	return id, nil
}

// BindJSON читает тело запроса и переводит ошибки биндинга в ошибку валидации.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Validation(validation.BindingMessage(err))
	}
	return nil
}

// RespondAppError отвечает ошибкой в формате {"error", "code"}.
func RespondAppError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}

// ParseIntQuery читает целочисленный query параметр с дефолтом.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// ParseFloatQuery читает необязательный дробный query параметр.
func ParseFloatQuery(c *gin.Context, key string) (*float64, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil, apperror.Validation("параметр " + key + " должен быть числом")
	}
	return &parsed, nil
}
