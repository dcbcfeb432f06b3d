package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	gormSpanKey   = "catalog:gorm:span"
	gormTimingKey = "catalog:gorm:timing"
	callbackName  = "catalog:observability"
)

// RegisterGORMCallbacks wraps every gorm statement in a "db.<op>" span and a
// "db" Server-Timing metric on the statement's context.
func RegisterGORMCallbacks(db *gorm.DB, tracer *Tracer) error {
	cb := db.Callback()
	hooks := []struct {
		op       string
		sqlVerb  string
		register func(before, after func(*gorm.DB)) error
	}{
		{op: "query", sqlVerb: "SELECT", register: func(b, a func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register(callbackName+":before_query", b); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register(callbackName+":after_query", a)
		}},
		{op: "create", sqlVerb: "INSERT", register: func(b, a func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register(callbackName+":before_create", b); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register(callbackName+":after_create", a)
		}},
		{op: "update", sqlVerb: "UPDATE", register: func(b, a func(*gorm.DB)) error {
			if err := cb.Update().Before("gorm:update").Register(callbackName+":before_update", b); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register(callbackName+":after_update", a)
		}},
		{op: "delete", sqlVerb: "DELETE", register: func(b, a func(*gorm.DB)) error {
			if err := cb.Delete().Before("gorm:delete").Register(callbackName+":before_delete", b); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register(callbackName+":after_delete", a)
		}},
		{op: "row", sqlVerb: "ROW", register: func(b, a func(*gorm.DB)) error {
			if err := cb.Row().Before("gorm:row").Register(callbackName+":before_row", b); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register(callbackName+":after_row", a)
		}},
		{op: "raw", sqlVerb: "RAW", register: func(b, a func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register(callbackName+":before_raw", b); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register(callbackName+":after_raw", a)
		}},
	}

	for _, h := range hooks {
		if err := h.register(beforeStatement(tracer, "db."+h.op, h.sqlVerb), afterStatement(tracer)); err != nil {
			return err
		}
	}
	return nil
}

func beforeStatement(tracer *Tracer, spanName, sqlVerb string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}

		ctx, span := tracer.StartSpan(ctx, spanName,
			attribute.String(AttrDBOp, sqlVerb),
			attribute.String(AttrDBTable, db.Statement.Table),
		)
		db.Statement.Context = ctx
		db.InstanceSet(gormSpanKey, span)
		db.InstanceSet(gormTimingKey, StartServerTiming(ctx, "db", sqlVerb))
	}
}

func afterStatement(tracer *Tracer) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if v, ok := db.InstanceGet(gormTimingKey); ok {
			if m, ok := v.(*ServerTimingMetric); ok {
				m.Stop()
			}
		}

		v, ok := db.InstanceGet(gormSpanKey)
		if !ok {
			return
		}
		span, ok := v.(trace.Span)
		if !ok {
			return
		}
		tracer.RecordError(span, db.Error)
		span.SetAttributes(attribute.Int64(AttrRows, db.RowsAffected))
		span.End()
	}
}
