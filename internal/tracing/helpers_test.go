package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	m := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value.Emit()
	}
	return m
}

func TestStartDBSpan(t *testing.T) {
	tests := []struct {
		table     string
		operation DBOperation
		wantName  string
	}{
		{"preferences", DBOperationQuery, "query preferences"},
		{"preferences", DBOperationInsert, "insert preferences"},
		{"", DBOperationExec, "exec"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			recorder := newRecorder(t)

			_, endSpan := StartDBSpan(context.Background(), tt.table, tt.operation)
			endSpan(nil)

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			span := spans[0]
			if span.Name() != tt.wantName {
				t.Errorf("span name = %q, want %q", span.Name(), tt.wantName)
			}
			if span.SpanKind() != trace.SpanKindClient {
				t.Errorf("span kind = %v, want client", span.SpanKind())
			}
			attrs := attrMap(span)
			if attrs["db.system"] != "postgresql" {
				t.Errorf("db.system = %q", attrs["db.system"])
			}
			_, hasTable := attrs["db.sql.table"]
			if hasTable != (tt.table != "") {
				t.Errorf("db.sql.table present = %v, want %v", hasTable, tt.table != "")
			}
		})
	}
}

func TestStartRedisSpan(t *testing.T) {
	recorder := newRecorder(t)

	_, endSpan := StartRedisSpan(context.Background(), "HGET", "favorites")
	endSpan(errors.New("connection refused"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "HGET" {
		t.Errorf("span name = %q", span.Name())
	}
	attrs := attrMap(span)
	if attrs["db.system"] != "redis" || attrs["db.redis.field"] != "favorites" {
		t.Errorf("attributes = %v", attrs)
	}
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", span.Status().Code)
	}
	if len(span.Events()) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestStartSpan_EventsAndAttributes(t *testing.T) {
	recorder := newRecorder(t)

	ctx, endSpan := StartSpan(context.Background(), "assistant.ask")
	SetAttributes(ctx, attribute.String("assistant.model", "gpt-4o-mini"))
	AddEvent(ctx, "fallback", attribute.String("reason", "timeout"))
	endSpan(nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if attrMap(span)["assistant.model"] != "gpt-4o-mini" {
		t.Error("attribute not set on span")
	}
	if len(span.Events()) != 1 || span.Events()[0].Name != "fallback" {
		t.Errorf("events = %v", span.Events())
	}
	if span.Status().Code == codes.Error {
		t.Error("span ended without error should not have error status")
	}
}
