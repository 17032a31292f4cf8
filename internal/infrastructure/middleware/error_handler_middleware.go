package middleware

import (
	"errors"
	"net/http"

	"geolatency/internal/core/domain"
	apperrors "geolatency/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware handles application errors and returns appropriate HTTP responses
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := toAppError(err)
		if appErr == nil {
			logger.Errorw("unhandled error",
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			c.JSON(http.StatusInternalServerError, apperrors.InternalBody())
			return
		}

		fields := []interface{}{
			"code", appErr.Code,
			"message", appErr.Message,
			"status", appErr.HTTPStatus,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		}
		if appErr.Cause != nil {
			fields = append(fields, "cause", appErr.Cause.Error())
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Errorw("application error", fields...)
		} else {
			logger.Debugw("request rejected", fields...)
		}

		c.JSON(appErr.HTTPStatus, appErr.Body())
	}
}

// toAppError maps domain sentinels to their HTTP rendering.
func toAppError(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrSnapshotNotReady):
		return apperrors.WrapError(err, apperrors.ErrCodeNotReady, "no snapshot published yet", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrFeedUnavailable), errors.Is(err, domain.ErrFeedEmpty):
		return apperrors.WrapError(err, apperrors.ErrCodeServiceUnavailable, "latency feed unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrNodeNotFound):
		return apperrors.WrapError(err, apperrors.ErrCodeNotFound, "node not found", http.StatusNotFound)
	}
	return nil
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.InternalBody())
			}
		}()

		c.Next()
	}
}
