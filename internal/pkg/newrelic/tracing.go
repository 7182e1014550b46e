package newrelic

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// FromEchoContext extracts the transaction started by nrecho
func FromEchoContext(c echo.Context) *newrelic.Transaction {
	return nrecho.FromContext(c)
}

// FromContext extracts the transaction from a request context
func FromContext(ctx context.Context) *newrelic.Transaction {
	return newrelic.FromContext(ctx)
}

// WithSegment runs fn inside a named segment when ctx carries a transaction
func WithSegment(ctx context.Context, segmentName string, fn func() error) error {
	if txn := FromContext(ctx); txn != nil {
		defer txn.StartSegment(segmentName).End()
	}
	return fn()
}

// WithSegmentAndReturn is WithSegment for functions returning a value
func WithSegmentAndReturn[T any](ctx context.Context, segmentName string, fn func() (T, error)) (T, error) {
	if txn := FromContext(ctx); txn != nil {
		defer txn.StartSegment(segmentName).End()
	}
	return fn()
}

// StartPostgresSegment times a query against collection; call End on the result
func StartPostgresSegment(ctx context.Context, collection, operation string) interface{ End() } {
	txn := FromContext(ctx)
	if txn == nil {
		return noopSegment{}
	}
	return &newrelic.DatastoreSegment{
		StartTime:  txn.StartSegmentNow(),
		Product:    newrelic.DatastorePostgres,
		Collection: collection,
		Operation:  operation,
	}
}

type noopSegment struct{}

func (noopSegment) End() {}

// StartBackgroundTransaction starts a non-web transaction for consumers and workers
func StartBackgroundTransaction(ctx context.Context, app *newrelic.Application, name string) (context.Context, *newrelic.Transaction) {
	if app == nil {
		return ctx, nil
	}
	txn := app.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn
}

// TraceHandler names the transaction and records the handler error
func TraceHandler(handlerName string, handler echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		txn := FromEchoContext(c)
		if txn != nil {
			txn.SetName(handlerName)
		}
		err := handler(c)
		if err != nil && txn != nil {
			txn.NoticeError(err)
		}
		return err
	}
}
