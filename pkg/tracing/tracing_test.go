package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddleware_RecordsSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/papers/:id", func(c *gin.Context) {
		_, span := StartSpan(c.Request.Context(), "paper.load")
		span.End()
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/papers/1", nil))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("期望 2 个 span，实际 %d", len(spans))
	}
	if spans[1].Name() != "GET /papers/:id" {
		t.Errorf("请求 span 名称不符: %s", spans[1].Name())
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("业务 span 应为请求 span 的子 span")
	}
}
