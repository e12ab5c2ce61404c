package config

import (
	"errors"
	"fmt"
	"strings"

	"soxguard/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic checks every section and joins all problems found.
func ValidateStatic(cfg *Config) error {
	var errs []error

	for _, check := range []func(*Config) error{
		func(c *Config) error { return validateServer(c.Server) },
		func(c *Config) error { return validateBroker(c.Broker) },
		func(c *Config) error { return validateDatabase(c.Database) },
		validateRules,
		validateEvents,
		validateDeduplication,
		func(c *Config) error { return validateRateLimit(c.API.RateLimit) },
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return nil
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	return validateRetry("broker.kafka.retry", cfg.Retry)
}

func validateRetry(prefix string, cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   prefix + ".max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.InitialInterval < 0 {
		return &ValidationError{
			Field:   prefix + ".initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   prefix + ".multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validateRules(cfg *Config) error {
	rules := cfg.Rules

	switch rules.UnknownIntegration {
	case constants.UnknownIntegrationStrict, constants.UnknownIntegrationPermissive:
	case "":
		return &ValidationError{
			Field:   "rules.unknown_integration",
			Message: "unknown integration policy is required (strict or permissive)",
		}
	default:
		return &ValidationError{
			Field:   "rules.unknown_integration",
			Message: fmt.Sprintf("invalid unknown integration policy: %s (valid: strict, permissive)", rules.UnknownIntegration),
		}
	}

	switch rules.Source {
	case constants.RuleSourceFile:
		if rules.File == "" {
			return &ValidationError{
				Field:   "rules.file",
				Message: "rule file path is required when rules.source is file",
			}
		}
	case constants.RuleSourcePostgres:
		if cfg.Database.Postgres.Host == "" {
			return &ValidationError{
				Field:   "database.postgres.host",
				Message: "PostgreSQL is required when rules.source is postgres",
			}
		}
	case constants.RuleSourceMongoDB:
		if cfg.Database.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "database.mongodb.uri",
				Message: "MongoDB is required when rules.source is mongodb",
			}
		}
	default:
		return &ValidationError{
			Field:   "rules.source",
			Message: fmt.Sprintf("invalid rule source: %s (valid: file, postgres, mongodb)", rules.Source),
		}
	}

	if rules.Reload.IntervalSeconds < 0 || rules.Reload.JitterSeconds < 0 {
		return &ValidationError{
			Field:   "rules.reload",
			Message: "reload interval and jitter must be non-negative",
		}
	}

	return validateRetry("rules.retry", rules.Retry)
}

func validateEvents(cfg *Config) error {
	events := cfg.Events

	switch events.Transport {
	case constants.TransportLog:
	case constants.TransportKafka:
		if !cfg.KafkaEnabled() {
			return &ValidationError{
				Field:   "events.transport",
				Message: "kafka transport requires broker.type kafka",
			}
		}
		if cfg.Broker.Kafka.OutputTopic == "" {
			return &ValidationError{
				Field:   "broker.kafka.output_topic",
				Message: "output topic is required for the kafka transport",
			}
		}
	case constants.TransportHTTP:
		if !strings.HasPrefix(events.HTTP.Endpoint, "http://") && !strings.HasPrefix(events.HTTP.Endpoint, "https://") {
			return &ValidationError{
				Field:   "events.http.endpoint",
				Message: "endpoint must be an http:// or https:// URL",
			}
		}
	default:
		return &ValidationError{
			Field:   "events.transport",
			Message: fmt.Sprintf("invalid transport: %s (valid: kafka, http, log)", events.Transport),
		}
	}

	if events.MaxDataBytes <= 0 {
		return &ValidationError{
			Field:   "events.max_data_bytes",
			Message: "max_data_bytes must be positive",
		}
	}

	if events.Timeout < 0 {
		return &ValidationError{
			Field:   "events.timeout",
			Message: "timeout must be non-negative",
		}
	}

	return nil
}

func validateDeduplication(cfg *Config) error {
	dedup := cfg.Deduplication

	validAlgorithms := map[string]bool{
		"md5": true, "sha256": true,
	}
	if dedup.HashAlgorithm != "" && !validAlgorithms[strings.ToLower(dedup.HashAlgorithm)] {
		return &ValidationError{
			Field:   "deduplication.hash_algorithm",
			Message: fmt.Sprintf("invalid hash algorithm: %s (valid: md5, sha256)", dedup.HashAlgorithm),
		}
	}

	if dedup.TTLSeconds < 0 {
		return &ValidationError{
			Field:   "deduplication.ttl_seconds",
			Message: "TTL must be non-negative",
		}
	}

	validOnError := map[string]bool{
		constants.FallbackAllow: true, constants.FallbackReject: true,
	}
	if dedup.OnRedisError != "" && !validOnError[strings.ToLower(dedup.OnRedisError)] {
		return &ValidationError{
			Field:   "deduplication.on_redis_error",
			Message: fmt.Sprintf("invalid on_redis_error value: %s (valid: allow, reject)", dedup.OnRedisError),
		}
	}

	if dedup.Enabled && cfg.Database.Redis.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis is required when deduplication is enabled",
		}
	}

	return nil
}

func validateRateLimit(cfg RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.RPS <= 0 {
		return &ValidationError{
			Field:   "api.rate_limit.rps",
			Message: "rps must be positive",
		}
	}

	if cfg.Burst <= 0 {
		return &ValidationError{
			Field:   "api.rate_limit.burst",
			Message: "burst must be positive",
		}
	}

	return nil
}
