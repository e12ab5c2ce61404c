package management

import (
	"context"
	"fmt"
	"time"

	"soxguard/internal/logger"
	"soxguard/internal/rules"
	"soxguard/pkg/cel"
	pkgerrors "soxguard/pkg/errors"
)

const changedBySystem = "system"

// ImportResult summarizes a stored rule set.
type ImportResult struct {
	Integrations int       `json:"integrations"`
	Mappings     int       `json:"mappings"`
	ChangedBy    string    `json:"changedBy"`
	ImportedAt   time.Time `json:"importedAt"`
}

type Notifier interface {
	PublishRulesReplaced(ctx context.Context, changedBy string, integrations, mappings int) error
}

type Service struct {
	store     rules.Writer
	source    rules.Repository
	evaluator *cel.Evaluator
	notifier  Notifier
	reloader  rules.Reloader
	logger    logger.Logger
	now       func() time.Time
}

type ServiceOption func(*Service)

// WithNotifier publishes a rule update event after every import.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithReloader refreshes the local snapshot right after an import instead of
// waiting for the update event or the periodic reload.
func WithReloader(r rules.Reloader) ServiceOption {
	return func(s *Service) {
		s.reloader = r
	}
}

func NewService(store rules.Writer, source rules.Repository, log logger.Logger, opts ...ServiceOption) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	s := &Service{
		store:     store,
		source:    source,
		evaluator: evaluator,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ImportRules replaces the stored rule set. The set must compile; a rejected
// set leaves the store untouched.
func (s *Service) ImportRules(ctx context.Context, defs rules.Definitions, changedBy string) (ImportResult, error) {
	if changedBy == "" {
		changedBy = changedBySystem
	}

	snap, err := rules.Compile(defs, s.evaluator)
	if err != nil {
		return ImportResult{}, err
	}
	integrations, mappings := snap.Counts()

	if err := s.store.Replace(ctx, defs); err != nil {
		return ImportResult{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.logger.InfowCtx(ctx, "Rule set imported",
		"integrations", integrations,
		"mappings", mappings,
		"changed_by", changedBy,
	)

	if s.notifier != nil {
		if err := s.notifier.PublishRulesReplaced(ctx, changedBy, integrations, mappings); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to publish rule update event", "error", err)
		}
	}
	if s.reloader != nil {
		if err := s.reloader.ReloadRules(ctx, true); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to reload rules after import", "error", err)
		}
	}

	return ImportResult{
		Integrations: integrations,
		Mappings:     mappings,
		ChangedBy:    changedBy,
		ImportedAt:   s.now().UTC(),
	}, nil
}

// ExportRules returns the stored rule set as declared.
func (s *Service) ExportRules(ctx context.Context) (rules.Definitions, error) {
	defs, err := s.source.Load(ctx)
	if err != nil {
		return rules.Definitions{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return defs, nil
}
