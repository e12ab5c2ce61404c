package rules

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"soxguard/internal/config"
	"soxguard/internal/logger"
	"soxguard/pkg/cel"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/metrics"
	"soxguard/pkg/retry"
	"soxguard/pkg/tracing"
)

// Service serves the current rule snapshot and refreshes it out of band.
// Readers never block: reloads compile a new snapshot and swap it in.
type Service struct {
	repo      Repository
	cfg       config.RulesConfig
	evaluator *cel.Evaluator
	snapshot  atomic.Pointer[Snapshot]
	logger    logger.Logger
}

func NewService(repo Repository, cfg config.RulesConfig, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	s := &Service{
		repo:      repo,
		cfg:       cfg,
		evaluator: evaluator,
		logger:    log,
	}
	s.snapshot.Store(EmptySnapshot())
	return s, nil
}

func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func (s *Service) GetRules(integrationID string) ([]ValidationRule, error) {
	return s.Snapshot().GetRules(integrationID)
}

func (s *Service) GetMapping(sourceID, destinationID string) ([]FieldMapping, error) {
	return s.Snapshot().GetMapping(sourceID, destinationID)
}

// ReloadRules loads, compiles and installs the rule set. A rule set that
// fails to compile leaves the current snapshot in place.
func (s *Service) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	ctx, span := tracing.StartSpan(ctx, "rules.reload")
	defer span.End()

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		metrics.IncRuleReload(s.cfg.Source, "error")
		return err
	}

	s.updateSnapshot(ctx, snap)
	metrics.IncRuleReload(s.cfg.Source, "success")
	return nil
}

func (s *Service) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.cfg.Reload.JitterSeconds <= 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.cfg.Reload.JitterSeconds*1000)) * time.Millisecond
	s.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) loadSnapshot(ctx context.Context) (*Snapshot, error) {
	s.logger.DebugwCtx(ctx, "Loading rules", "source", s.cfg.Source)

	defs, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", s.cfg.Source, err)
	}

	snap, err := Compile(defs, s.evaluator)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) updateSnapshot(ctx context.Context, snap *Snapshot) {
	s.snapshot.Store(snap)

	integrations, mappings := snap.Counts()
	metrics.SetActiveRuleSets(integrations, mappings)
	s.logger.InfowCtx(ctx, "Successfully reloaded rules",
		"source", s.cfg.Source,
		"integrations", integrations,
		"mappings", mappings,
	)
}

// LoadWithRetry performs the initial load with exponential backoff. A rule set
// that does not compile is not retried.
func (s *Service) LoadWithRetry(ctx context.Context) error {
	policy := retry.Policy{
		MaxAttempts:     s.cfg.Retry.MaxAttempts,
		InitialInterval: s.cfg.Retry.InitialInterval,
		MaxInterval:     s.cfg.Retry.MaxInterval,
		Multiplier:      s.cfg.Retry.Multiplier,
		MaxElapsedTime:  s.cfg.Retry.MaxElapsedTime,
	}

	return retry.RetryWithCallback(ctx, policy, func() error {
		err := s.ReloadRules(ctx, true)
		if errors.Is(err, apperrors.ErrRuleCompilation) {
			return retry.NewFatalError(err)
		}
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt("rules", "initial_load")
		s.logger.WarnwCtx(ctx, "Initial rule load failed, retrying",
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
}

// StartReloader reloads on the configured interval until ctx is done. It
// blocks without reloading when the interval is zero.
func (s *Service) StartReloader(ctx context.Context) error {
	if s.cfg.Reload.IntervalSeconds <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(time.Duration(s.cfg.Reload.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
