package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
)

// UUIDValidator отклоняет запрос, если параметр пути не является UUID.
// Использование: api.GET("/reviews/:reviewId", UUIDValidator("reviewId"), h.GetReview)
func UUIDValidator(params ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range params {
			if _, err := uuid.Parse(c.Param(name)); err != nil {
				WriteError(c, apperror.Validation("параметр "+name+" должен быть валидным UUID"))
				return
			}
		}
		c.Next()
	}
}
