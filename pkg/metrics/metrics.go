package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PairValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pair_validations_total",
			Help: "Total number of integration pair validations (count)",
		},
		[]string{"result"},
	)

	IntegrationValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_validations_total",
			Help: "Total number of single integration payload validations (count)",
		},
		[]string{"integration_id", "result"},
	)

	ClassifiedErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classified_errors_total",
			Help: "Total number of classified validation and mapping errors (count)",
		},
		[]string{"type", "sub_type"},
	)

	MappingDiscrepanciesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapping_discrepancies_total",
			Help: "Total number of mapping discrepancies found between source and destination (count)",
		},
		[]string{"kind"},
	)

	ValidationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validation_duration_ms",
			Help:    "Duration of pair validation in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"result"},
	)

	BusinessEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "business_events_total",
			Help: "Total number of business event ingestion attempts (count)",
		},
		[]string{"transport", "event_type", "status"},
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_ms",
			Help:    "Duration of business event ingestion in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"transport", "status"},
	)

	PayloadTruncationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payload_truncations_total",
			Help: "Total number of event payload copies truncated to the size bound (count)",
		},
		[]string{"side"},
	)

	ActiveIntegrations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rules_active_integrations",
			Help: "Number of integrations with configured rules in the current snapshot (count)",
		},
	)

	ActiveMappings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rules_active_mappings",
			Help: "Number of declared integration pair mappings in the current snapshot (count)",
		},
	)

	RuleReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_reloads_total",
			Help: "Total number of rule snapshot reloads (count)",
		},
		[]string{"source", "status"},
	)

	DedupRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_requests_total",
			Help: "Total number of redelivery checks by outcome (count)",
		},
		[]string{"result"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "operation"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

var (
	validationOnce     sync.Once
	rulesOnce          sync.Once
	dedupOnce          sync.Once
	brokerOnce         sync.Once
	circuitBreakerOnce sync.Once
	apiOnce            sync.Once
)

func RegisterValidationMetrics() {
	validationOnce.Do(func() {
		prometheus.MustRegister(PairValidationsTotal)
		prometheus.MustRegister(IntegrationValidationsTotal)
		prometheus.MustRegister(ClassifiedErrorsTotal)
		prometheus.MustRegister(MappingDiscrepanciesTotal)
		prometheus.MustRegister(ValidationDuration)
		prometheus.MustRegister(BusinessEventsTotal)
		prometheus.MustRegister(IngestDuration)
		prometheus.MustRegister(PayloadTruncationsTotal)
	})
}

func RegisterRuleStoreMetrics() {
	rulesOnce.Do(func() {
		prometheus.MustRegister(ActiveIntegrations)
		prometheus.MustRegister(ActiveMappings)
		prometheus.MustRegister(RuleReloadsTotal)
		prometheus.MustRegister(DatabaseQueriesTotal)
		prometheus.MustRegister(DatabaseQueryDuration)
	})
}

func RegisterDedupMetrics() {
	dedupOnce.Do(func() {
		prometheus.MustRegister(DedupRequestsTotal)
		prometheus.MustRegister(FallbackUsageTotal)
	})
}

func RegisterBrokerMetrics() {
	brokerOnce.Do(func() {
		prometheus.MustRegister(RetryAttemptsTotal)
		prometheus.MustRegister(DLQMessagesTotal)
		prometheus.MustRegister(KafkaMessagesReadTotal)
		prometheus.MustRegister(KafkaMessagesWrittenTotal)
		prometheus.MustRegister(KafkaMessageSizeBytes)
		prometheus.MustRegister(KafkaReadDuration)
		prometheus.MustRegister(KafkaWriteDuration)
	})
}

func RegisterCircuitBreakerMetrics() {
	circuitBreakerOnce.Do(func() {
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(CircuitBreakerRequests)
		prometheus.MustRegister(CircuitBreakerFailures)
	})
}

func RegisterAPIMetrics() {
	apiOnce.Do(func() {
		prometheus.MustRegister(RateLimitRequestsTotal)
	})
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func IncPairValidation(result string) {
	PairValidationsTotal.WithLabelValues(result).Inc()
}

func IncIntegrationValidation(integrationID, result string) {
	IntegrationValidationsTotal.WithLabelValues(integrationID, result).Inc()
}

func IncClassifiedError(errorType, subType string) {
	ClassifiedErrorsTotal.WithLabelValues(errorType, subType).Inc()
}

func AddMappingDiscrepancies(kind string, n int) {
	if n > 0 {
		MappingDiscrepanciesTotal.WithLabelValues(kind).Add(float64(n))
	}
}

func ObserveValidationDuration(duration time.Duration, result string) {
	ValidationDuration.WithLabelValues(result).Observe(ms(duration))
}

func IncBusinessEvent(transport, eventType, status string) {
	BusinessEventsTotal.WithLabelValues(transport, eventType, status).Inc()
}

func ObserveIngestDuration(transport, status string, duration time.Duration) {
	IngestDuration.WithLabelValues(transport, status).Observe(ms(duration))
}

func IncPayloadTruncation(side string) {
	PayloadTruncationsTotal.WithLabelValues(side).Inc()
}

func SetActiveRuleSets(integrations, mappings int) {
	ActiveIntegrations.Set(float64(integrations))
	ActiveMappings.Set(float64(mappings))
}

func IncRuleReload(source, status string) {
	RuleReloadsTotal.WithLabelValues(source, status).Inc()
}

func IncDedupRequest(result string) {
	DedupRequestsTotal.WithLabelValues(result).Inc()
}

func IncFallbackUsage(service, strategy, reason string) {
	FallbackUsageTotal.WithLabelValues(service, strategy, reason).Inc()
}

func IncRetryAttempt(service, operation string) {
	RetryAttemptsTotal.WithLabelValues(service, operation).Inc()
}

func IncDLQMessage(service, topic, reason string) {
	DLQMessagesTotal.WithLabelValues(service, topic, reason).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(ms(duration))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(ms(duration))
}

func IncRateLimitRequest(status string) {
	RateLimitRequestsTotal.WithLabelValues(status).Inc()
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(ms(duration))
}
