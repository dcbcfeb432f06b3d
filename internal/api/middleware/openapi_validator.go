package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"servicecatalog.io/catalog/internal/pkg/logger"
)

const (
	codeOpenAPIRequestInvalid  = "OPENAPI_REQUEST_INVALID"
	codeOpenAPIResponseInvalid = "OPENAPI_RESPONSE_INVALID"

	openAPIResponseValidationMessage = "response does not conform to OpenAPI contract"
)

// NewOpenAPIValidator checks every request and response of a documented
// operation against doc.
//
// Request bodies are not validated here: field-level checks and their error
// format belong to the transfer layer. Paths and methods missing from doc pass
// through untouched so that gin's own 404 and 405 handling applies.
func NewOpenAPIValidator(doc *openapi3.T) (gin.HandlerFunc, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create openapi router: %w", err)
	}

	opts := &openapi3filter.Options{
		ExcludeRequestBody: true,
		AuthenticationFunc: func(context.Context, *openapi3filter.AuthenticationInput) error { return nil },
	}

	return func(c *gin.Context) {
		route, pathParams, routeErr := router.FindRoute(c.Request)
		if routeErr != nil {
			if isRoutingMiss(routeErr) {
				c.Next()
				return
			}
			abortWithOpenAPIError(c, http.StatusBadRequest, codeOpenAPIRequestInvalid, routeErr.Error())
			return
		}

		reqInput := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options:    opts,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), reqInput); err != nil {
			abortWithOpenAPIError(c, http.StatusBadRequest, codeOpenAPIRequestInvalid, err.Error())
			return
		}

		buffered := newBufferedResponseWriter(c.Writer)
		c.Writer = buffered
		c.Next()

		respInput := &openapi3filter.ResponseValidationInput{
			RequestValidationInput: reqInput,
			Status:                 buffered.Status(),
			Header:                 buffered.Header().Clone(),
			Options:                opts,
		}
		if buffered.Size() > 0 {
			respInput.SetBodyBytes(buffered.body.Bytes())
		}

		if err := openapi3filter.ValidateResponse(c.Request.Context(), respInput); err != nil {
			logger.Error("OpenAPI response validation failed",
				zap.String("request_id", GetRequestID(c.Request.Context())),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", buffered.Status()),
				zap.Error(err),
			)
			buffered.ResetJSON(http.StatusInternalServerError, errorBody{
				Code:    codeOpenAPIResponseInvalid,
				Message: openAPIResponseValidationMessage,
			})
		}

		if _, err := buffered.FlushToOriginal(); err != nil {
			logger.Warn("failed to flush buffered response",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
		c.Writer = buffered.ResponseWriter
	}, nil
}

// isRoutingMiss reports whether err means the request is outside the documented surface.
func isRoutingMiss(err error) bool {
	if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
		return true
	}
	var routeErr *routers.RouteError
	if errors.As(err, &routeErr) {
		return strings.Contains(routeErr.Reason, routers.ErrPathNotFound.Error()) ||
			strings.Contains(routeErr.Reason, routers.ErrMethodNotAllowed.Error())
	}
	return false
}

func abortWithOpenAPIError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Code: code, Message: message})
}

// bufferedResponseWriter holds the response in memory until it has been validated.
type bufferedResponseWriter struct {
	gin.ResponseWriter
	body        bytes.Buffer
	statusCode  int
	wroteHeader bool
	size        int
}

func newBufferedResponseWriter(w gin.ResponseWriter) *bufferedResponseWriter {
	return &bufferedResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (w *bufferedResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = code
	w.wroteHeader = true
}

func (w *bufferedResponseWriter) WriteHeaderNow() {
	w.wroteHeader = true
}

func (w *bufferedResponseWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.body.Write(data)
	w.size += n
	return n, err
}

func (w *bufferedResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *bufferedResponseWriter) Status() int {
	return w.statusCode
}

func (w *bufferedResponseWriter) Size() int {
	return w.size
}

func (w *bufferedResponseWriter) Written() bool {
	return w.wroteHeader
}

func (w *bufferedResponseWriter) ResetJSON(statusCode int, payload errorBody) {
	w.statusCode = statusCode
	w.wroteHeader = true
	w.body.Reset()
	w.size = 0
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"code":"` + codeOpenAPIResponseInvalid + `","message":"` + openAPIResponseValidationMessage + `"}`)
	}
	_, _ = w.Write(data)
}

func (w *bufferedResponseWriter) FlushToOriginal() (int, error) {
	w.ResponseWriter.WriteHeader(w.Status())
	if w.body.Len() == 0 {
		w.ResponseWriter.WriteHeaderNow()
		return 0, nil
	}
	return w.ResponseWriter.Write(w.body.Bytes())
}
