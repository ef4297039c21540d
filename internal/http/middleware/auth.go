package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-reviews/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

var (
	errMissingToken = apperror.New(apperror.ErrCodeUnauthorized, "требуется авторизация")
	errInvalidToken = apperror.New(apperror.ErrCodeUnauthorized, "токен невалиден")
	errNotModerator = apperror.New(apperror.ErrCodeForbidden, "действие доступно только модераторам")
)

// AuthMiddleware проверяет JWT access токен и кладёт пользователя в контекст.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			WriteError(c, errMissingToken)
			return
		}

		userID, role, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || userID == uuid.Nil {
			WriteError(c, errInvalidToken)
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// OptionalAuth кладёт пользователя в контекст, если передан валидный токен.
// Без токена или с невалидным токеном запрос продолжается анонимно.
func OptionalAuth(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			if userID, role, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer ")); err == nil && userID != uuid.Nil {
				c.Set(ContextUserIDKey, userID)
				c.Set(ContextRoleKey, role)
			}
		}
		c.Next()
	}
}

// RequireModerator пропускает только администраторов и модераторов.
// Ставится после AuthMiddleware.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !service.IsModeratorRole(c.GetString(ContextRoleKey)) {
			WriteError(c, errNotModerator)
			return
		}
		c.Next()
	}
}
