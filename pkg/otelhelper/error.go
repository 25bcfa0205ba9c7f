package otelhelper

import (
	"github.com/dukex/pcp/pkg/errdefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorKindKey holds the errdefs category of a failed span.
const ErrorKindKey = "pcp.error.kind"

// SetError marks span as failed and tags it with the error category. A nil err leaves
// the span untouched.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	attrs = append(attrs, attribute.String(ErrorKindKey, errdefs.Kind(err)))

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
}
