package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-reviews/internal/logger"
	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
)

// ErrorHandler логирует ошибки, прикреплённые к запросу, и отвечает за handler,
// если тот сам ничего не записал. Детали внутренних ошибок клиенту не отдаются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, body := errorBody(err)

		entry := logger.Component("http").WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": status,
		}).WithError(err)
		if status >= http.StatusInternalServerError {
			entry.Error("ошибка обработки запроса")
		} else {
			entry.Debug("запрос отклонён")
		}

		if !c.Writer.Written() {
			c.JSON(status, body)
		}
	}
}

// WriteError отвечает ошибкой в формате {"error", "code"} и прикрепляет её к запросу для логирования.
func WriteError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := errorBody(err)
	c.AbortWithStatusJSON(status, body)
}

func errorBody(err error) (int, gin.H) {
	appErr, ok := apperror.As(err)
	if !ok {
		return http.StatusInternalServerError, gin.H{"error": apperror.ErrInternal.Message, "code": apperror.ErrInternal.Code}
	}
	if appErr.Internal() {
		return appErr.HTTPStatus, gin.H{"error": apperror.ErrInternal.Message, "code": apperror.ErrInternal.Code}
	}
	return appErr.HTTPStatus, gin.H{"error": appErr.Message, "code": appErr.Code}
}
