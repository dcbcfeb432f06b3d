package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	apperrors "servicecatalog.io/catalog/internal/pkg/errors"
	"servicecatalog.io/catalog/internal/pkg/logger"
	"servicecatalog.io/catalog/internal/pkg/observability"
	"servicecatalog.io/catalog/internal/repository"
	"servicecatalog.io/catalog/internal/transfer"
)

// resource is the list/create pair shared by every catalog table.
// M is the stored row and T its outbound representation.
type resource[M any, T any] struct {
	name   string
	tracer *observability.Tracer
	list   func(context.Context) ([]M, error)
	decode func(transfer.Payload) (M, []apperrors.FieldError)
	create func(context.Context, *M) error
	encode func(M) T
}

func (r resource[M, T]) handleList(c *gin.Context) {
	ctx, span := r.tracer.StartList(c.Request.Context(), r.name)
	defer span.End()

	rows, err := r.list(ctx)
	if err != nil {
		r.tracer.RecordError(span, err)
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternal, "An internal error occurred", http.StatusInternalServerError).
			WithParams(map[string]interface{}{"resource": r.name}))
		return
	}

	span.SetAttributes(attribute.Int(observability.AttrRows, len(rows)))

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.encode(row))
	}
	c.JSON(http.StatusOK, out)
}

func (r resource[M, T]) handleCreate(c *gin.Context) {
	payload, err := bindPayload(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	row, fieldErrs := r.decode(payload)
	if len(fieldErrs) > 0 {
		_ = c.Error(apperrors.ErrValidationFailed(fieldErrs))
		return
	}

	ctx, span := r.tracer.StartCreate(c.Request.Context(), r.name)
	defer span.End()

	if err := r.create(ctx, &row); err != nil {
		r.tracer.RecordError(span, err)
		var missing *repository.MissingReferenceError
		if errors.As(err, &missing) {
			fes := make([]apperrors.FieldError, 0, len(missing.Refs))
			for _, ref := range missing.Refs {
				fes = append(fes, transfer.DoesNotExist(ref.Field, ref.ID))
			}
			_ = c.Error(apperrors.ErrValidationFailed(fes))
			return
		}
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternal, "An internal error occurred", http.StatusInternalServerError).
			WithParams(map[string]interface{}{"resource": r.name}))
		return
	}

	out := r.encode(row)
	logger.Debug("Catalog row created", zap.String("resource", r.name), zap.Any("row", out))
	c.JSON(http.StatusCreated, out)
}
