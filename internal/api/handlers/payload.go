package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	apperrors "servicecatalog.io/catalog/internal/pkg/errors"
	"servicecatalog.io/catalog/internal/transfer"
)

// maxBodyBytes caps the size of a create request body.
const maxBodyBytes = 1 << 20

// bindPayload reads the request body as a flat key/value mapping.
//
// An empty body is an empty mapping. JSON, urlencoded and multipart forms are
// accepted; any other content type is rejected with 415.
func bindPayload(c *gin.Context) (transfer.Payload, error) {
	if c.Request.Body == nil {
		return transfer.Payload{}, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return nil, apperrors.ErrMalformedRequestf("read request body - %v", err)
	}
	if len(body) > maxBodyBytes {
		return nil, apperrors.ErrMalformedRequestf("request body exceeds %d bytes", maxBodyBytes)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return transfer.Payload{}, nil
	}

	switch ct := c.ContentType(); ct {
	case binding.MIMEJSON:
		return decodeJSONPayload(body)
	case binding.MIMEPOSTForm:
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, apperrors.ErrMalformedRequestf("form parse error - %v", err)
		}
		return formPayload(values), nil
	case binding.MIMEMultipartPOSTForm:
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		form, err := c.MultipartForm()
		if err != nil {
			return nil, apperrors.ErrMalformedRequestf("multipart form parse error - %v", err)
		}
		return formPayload(form.Value), nil
	default:
		return nil, apperrors.ErrUnsupportedMediaType(ct)
	}
}

func decodeJSONPayload(body []byte) (transfer.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, apperrors.ErrMalformedRequestf("JSON parse error - %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperrors.ErrMalformedRequestf("JSON parse error - unexpected data after top-level value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apperrors.ErrValidationFailed([]apperrors.FieldError{
			transfer.NotAnObject(transfer.JSONKind(v)),
		})
	}
	return transfer.Payload(obj), nil
}

// formPayload keeps the last value of repeated keys.
func formPayload(values map[string][]string) transfer.Payload {
	p := make(transfer.Payload, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			p[k] = vs[len(vs)-1]
		}
	}
	return p
}
