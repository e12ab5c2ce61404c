package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey                  = "trace_id"
	RequestIDKey                = "request_id"
	TransactionIDKey            = "transaction_id"
	SourceIntegrationIDKey      = "source_integration_id"
	DestinationIntegrationIDKey = "destination_integration_id"
	ServiceNameKey              = "service_name"
)

// fieldOrder fixes the order correlation fields appear in log lines.
var fieldOrder = []string{
	TraceIDKey,
	RequestIDKey,
	TransactionIDKey,
	SourceIntegrationIDKey,
	DestinationIntegrationIDKey,
	ServiceNameKey,
}

func with(ctx context.Context, key, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey(key), value)
}

func get(ctx context.Context, key string) string {
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, TraceIDKey, traceID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, RequestIDKey, requestID)
}

func WithTransactionID(ctx context.Context, transactionID string) context.Context {
	return with(ctx, TransactionIDKey, transactionID)
}

// WithIntegrationPair tags the context with both sides of a validated pair.
func WithIntegrationPair(ctx context.Context, sourceID, destinationID string) context.Context {
	ctx = with(ctx, SourceIntegrationIDKey, sourceID)
	return with(ctx, DestinationIntegrationIDKey, destinationID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return with(ctx, ServiceNameKey, serviceName)
}

func GetTraceID(ctx context.Context) string {
	return get(ctx, TraceIDKey)
}

func GetRequestID(ctx context.Context) string {
	return get(ctx, RequestIDKey)
}

func GetTransactionID(ctx context.Context) string {
	return get(ctx, TransactionIDKey)
}

func GetServiceName(ctx context.Context) string {
	return get(ctx, ServiceNameKey)
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, len(fieldOrder)*2)
	for _, key := range fieldOrder {
		if v := get(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}
	return fields
}
