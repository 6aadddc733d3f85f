package observability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const unmatchedRoute = "unmatched"

// GinMiddleware traces every request and records RED metrics keyed by the
// matched route template. red may be nil.
func GinMiddleware(tracer trace.Tracer, red *REDMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		parentCtx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		ctx, span := tracer.Start(parentCtx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Request.Method),
				semconv.HTTPRoute(route),
				attribute.String("http.target", c.Request.URL.Path),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		var done func()
		if red != nil {
			done = red.TrackInflight(ctx, route)
		}

		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))

		for _, e := range c.Errors {
			span.RecordError(e.Err)
		}

		outcome := StatusOK
		if status >= http.StatusInternalServerError {
			outcome = StatusError

			span.SetStatus(codes.Error, http.StatusText(status))
		}

		if red != nil {
			done()
			red.RecordRequest(ctx, route, outcome, time.Since(start))
		}
	}
}
