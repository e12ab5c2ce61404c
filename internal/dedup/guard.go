package dedup

import (
	"context"
	"fmt"
	"time"

	"soxguard/internal/config"
	"soxguard/internal/constants"
	"soxguard/internal/logger"
	"soxguard/pkg/metrics"
	"soxguard/pkg/models"
	"soxguard/pkg/tracing"
)

const (
	ResultUnique    = "unique"
	ResultDuplicate = "duplicate"
	ResultSkipped   = "skipped"
	ResultError     = "error"
	ResultReleased  = "released"
)

// Guard drops redeliveries of a validation request seen within the TTL. A
// request is identified by its transaction and integration pair.
type Guard struct {
	repo         Repository
	hasher       *Hasher
	ttl          time.Duration
	onRedisError string
	now          func() time.Time
	logger       logger.Logger
}

func NewGuard(repo Repository, cfg config.DeduplicationConfig, log logger.Logger) (*Guard, error) {
	hasher, err := NewHasher(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	ttl := cfg.TTLSeconds
	if ttl <= 0 {
		ttl = constants.DefaultTTLSeconds
	}

	onRedisError := cfg.OnRedisError
	if onRedisError == "" {
		onRedisError = constants.FallbackAllow
	}

	return &Guard{
		repo:         repo,
		hasher:       hasher,
		ttl:          time.Duration(ttl) * time.Second,
		onRedisError: onRedisError,
		now:          time.Now,
		logger:       log,
	}, nil
}

// Key is the Redis key of req, or "" when req carries no identity to
// deduplicate on.
func (g *Guard) Key(req *models.ValidationRequest) string {
	id := req.ResolveTransactionID()
	if id == "" {
		id = req.RequestID
	}
	if id == "" {
		return ""
	}
	return constants.CacheKeyPrefixDedup + g.hasher.ComputeHash(id, req.SourceIntegrationID, req.DestinationIntegrationID)
}

// FirstSeen reports whether req should be processed. Redis failures follow
// the on_redis_error fallback: "allow" processes the request, "reject"
// returns the error.
func (g *Guard) FirstSeen(ctx context.Context, req *models.ValidationRequest) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.first_seen")
	defer span.End()

	key := g.Key(req)
	if key == "" {
		metrics.IncDedupRequest(ResultSkipped)
		return true, nil
	}

	ok, err := g.repo.SetNX(ctx, key, g.now().Unix(), g.ttl)
	if err != nil {
		metrics.IncDedupRequest(ResultError)
		return g.handleRedisError(ctx, err, key)
	}

	if ok {
		metrics.IncDedupRequest(ResultUnique)
	} else {
		metrics.IncDedupRequest(ResultDuplicate)
		g.logger.InfowCtx(ctx, "Duplicate validation request skipped", "dedup_key", key)
	}
	return ok, nil
}

func (g *Guard) handleRedisError(ctx context.Context, err error, key string) (bool, error) {
	if g.onRedisError == constants.FallbackAllow {
		metrics.IncFallbackUsage("deduplication", "allow_on_error", "redis_error")
		g.logger.WarnwCtx(ctx, "Redis error during dedup check, allowing request (fallback: allow)",
			"dedup_key", key,
			"error", err,
		)
		return true, nil
	}

	metrics.IncFallbackUsage("deduplication", "reject_on_error", "redis_error")
	return false, fmt.Errorf("redis error during dedup check for %s: %w", key, err)
}

// Release forgets the claim FirstSeen made for req so a redelivery is
// processed again. Used when processing failed and the message is retried.
func (g *Guard) Release(ctx context.Context, req *models.ValidationRequest) error {
	key := g.Key(req)
	if key == "" {
		return nil
	}
	if err := g.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to release dedup key %s: %w", key, err)
	}
	metrics.IncDedupRequest(ResultReleased)
	return nil
}
