// Package middleware provides the gin middleware chain of the catalog API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "servicecatalog.io/catalog/internal/pkg/errors"
	"servicecatalog.io/catalog/internal/pkg/logger"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	FieldErrors []apperrors.FieldError `json:"field_errors,omitempty"`
}

// ErrorHandler renders the last error recorded with c.Error() as a JSON body.
// Handlers never write error responses themselves.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		rid := GetRequestID(c.Request.Context())

		if appErr, ok := apperrors.IsAppError(err); ok {
			fields := []zap.Field{
				zap.String("request_id", rid),
				zap.String("code", appErr.Code),
				zap.Int("status", appErr.HTTPStatus),
			}
			if len(appErr.FieldErrors) > 0 {
				fields = append(fields, zap.Strings("fields", appErr.Fields()))
			}
			if len(appErr.Params) > 0 {
				fields = append(fields, zap.Any("params", appErr.Params))
			}
			if appErr.Err != nil {
				fields = append(fields, zap.Error(appErr.Err))
			}
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Error("Request failed", fields...)
			} else {
				logger.Warn("Request rejected", fields...)
			}

			c.JSON(appErr.HTTPStatus, errorBody{
				Code:        appErr.Code,
				Message:     appErr.Message,
				FieldErrors: appErr.FieldErrors,
			})
			return
		}

		logger.Error("Unhandled request error", zap.String("request_id", rid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{
			Code:    apperrors.CodeInternal,
			Message: "An internal error occurred",
		})
	}
}
