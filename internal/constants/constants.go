package constants

import "time"

const (
	ServiceName = "validation-service"
	EventSource = "soxguard/validation-service"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
	// KafkaEventWriteAttempts is 1: a business event gets one ingestion
	// attempt and the writer must not retry it.
	KafkaEventWriteAttempts = 1
)

const (
	DefaultHTTPTimeout = 10 * time.Second
	// DefaultMaxDataBytes bounds the serialized sourceData and
	// destinationData of a business event.
	DefaultMaxDataBytes = 10000
)

const (
	CacheKeyPrefixDedup = "soxguard:dedup:"
)

const (
	DefaultInputTopic  = "integration_validation_requests"
	DefaultOutputTopic = "business_events"
	DefaultRulesTopic  = "integration_rule_updates"
	DefaultDLQTopic    = "integration_validation_dlq"
)

const (
	DefaultMongoDBName = "soxguard"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultTTLSeconds = 3600
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	FallbackAllow  = "allow"
	FallbackReject = "reject"
)

const (
	UnknownIntegrationStrict     = "strict"
	UnknownIntegrationPermissive = "permissive"
)

const (
	RuleSourceFile     = "file"
	RuleSourcePostgres = "postgres"
	RuleSourceMongoDB  = "mongodb"
)

const (
	TransportKafka = "kafka"
	TransportHTTP  = "http"
	TransportLog   = "log"
)

const (
	DLQReasonDecode             = "decode_error"
	DLQReasonInvalidRequest     = "invalid_request"
	DLQReasonUnknownIntegration = "unknown_integration"
)
