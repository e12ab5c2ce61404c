package rules

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soxguard/internal/broker"
	"soxguard/internal/config"
	"soxguard/internal/logger"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/models"
)

const rulesYAML = `
integrations:
  - id: int15-3-2
    description: reservations out
    rules:
      - field: confirmationIds[0].value
        required: true
        type: string
        predicate: 'value.size() == 6'
  - id: int15-3-1
    rules:
      - field: propertyCode
        required: true
mappings:
  - source: int15-3-2
    destination: int15-3-1
    fields:
      - source: propertyCode
        destination: propertyCode
        compare: trimmed
      - source: guest.name
        destination: guestName
        expression: 'source.lowerAscii() == destination.lowerAscii()'
        required: true
`

func writeRulesFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileRepository_Load(t *testing.T) {
	repo := NewFileRepository(writeRulesFile(t, "rules.yaml", rulesYAML))

	defs, err := repo.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, defs.Integrations, 2)
	assert.Equal(t, "int15-3-2", defs.Integrations[0].ID)
	assert.Equal(t, "reservations out", defs.Integrations[0].Description)
	require.Len(t, defs.Integrations[0].Rules, 1)
	assert.Equal(t, "confirmationIds[0].value", defs.Integrations[0].Rules[0].Field)
	assert.Equal(t, "value.size() == 6", defs.Integrations[0].Rules[0].Predicate)

	require.Len(t, defs.Mappings, 1)
	require.Len(t, defs.Mappings[0].Fields, 2)
	assert.Equal(t, "trimmed", defs.Mappings[0].Fields[0].Compare)
	assert.True(t, defs.Mappings[0].Fields[1].Required)
}

func TestFileRepository_JSON(t *testing.T) {
	content, err := json.Marshal(testDefinitions())
	require.NoError(t, err)

	defs, err := NewFileRepository(writeRulesFile(t, "rules.json", string(content))).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, defs.Integrations, 3)
	assert.Len(t, defs.Mappings, 1)
}

func TestFileRepository_MissingFile(t *testing.T) {
	_, err := NewFileRepository(filepath.Join(t.TempDir(), "absent.yaml")).Load(context.Background())
	assert.Error(t, err)
}

type countingRepository struct {
	defs  Definitions
	err   error
	calls atomic.Int32
}

func (r *countingRepository) Load(ctx context.Context) (Definitions, error) {
	r.calls.Add(1)
	return r.defs, r.err
}

func testRulesConfig() config.RulesConfig {
	return config.RulesConfig{
		Source:             "file",
		UnknownIntegration: "strict",
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
			MaxElapsedTime:  time.Second,
		},
	}
}

func TestService_ReloadRules(t *testing.T) {
	svc, err := NewService(NewStaticRepository(testDefinitions()), testRulesConfig(), logger.NopLogger())
	require.NoError(t, err)

	_, err = svc.GetRules("int15-3-2")
	assert.True(t, apperrors.IsUnknownIntegration(err), "empty before first load")

	require.NoError(t, svc.ReloadRules(context.Background(), true))

	rules, err := svc.GetRules("int15-3-2")
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	mapping, err := svc.GetMapping("int15-3-1", "int15-3-2")
	require.NoError(t, err)
	assert.Len(t, mapping, 2)
}

func TestService_FailedReloadKeepsSnapshot(t *testing.T) {
	repo := &countingRepository{defs: testDefinitions()}
	svc, err := NewService(repo, testRulesConfig(), logger.NopLogger())
	require.NoError(t, err)
	require.NoError(t, svc.ReloadRules(context.Background(), true))
	before := svc.Snapshot()

	repo.defs.Integrations[0].Rules[0].Predicate = "value =="
	err = svc.ReloadRules(context.Background(), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRuleCompilation))
	assert.Same(t, before, svc.Snapshot())

	repo.defs = testDefinitions()
	repo.err = errors.New("connection refused")
	require.Error(t, svc.ReloadRules(context.Background(), true))
	assert.Same(t, before, svc.Snapshot())
}

func TestService_LoadWithRetry(t *testing.T) {
	t.Run("retries load errors", func(t *testing.T) {
		repo := &countingRepository{err: errors.New("connection refused")}
		svc, err := NewService(repo, testRulesConfig(), logger.NopLogger())
		require.NoError(t, err)

		err = svc.LoadWithRetry(context.Background())
		require.Error(t, err)
		assert.Equal(t, int32(3), repo.calls.Load())
	})

	t.Run("does not retry compile errors", func(t *testing.T) {
		defs := testDefinitions()
		defs.Mappings[0].Fields[0].Compare = "fuzzy"
		repo := &countingRepository{defs: defs}
		svc, err := NewService(repo, testRulesConfig(), logger.NopLogger())
		require.NoError(t, err)

		err = svc.LoadWithRetry(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrRuleCompilation))
		assert.Equal(t, int32(1), repo.calls.Load())
	})

	t.Run("succeeds", func(t *testing.T) {
		repo := &countingRepository{defs: testDefinitions()}
		svc, err := NewService(repo, testRulesConfig(), logger.NopLogger())
		require.NoError(t, err)

		require.NoError(t, svc.LoadWithRetry(context.Background()))
		assert.Equal(t, int32(1), repo.calls.Load())
	})
}

func TestService_StartReloader(t *testing.T) {
	repo := &countingRepository{defs: testDefinitions()}
	cfg := testRulesConfig()
	cfg.Reload.IntervalSeconds = 1
	svc, err := NewService(repo, cfg, logger.NopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.StartReloader(ctx) }()

	assert.Eventually(t, func() bool { return repo.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("reloader did not stop")
	}
}

func TestService_StartReloaderDisabled(t *testing.T) {
	repo := &countingRepository{defs: testDefinitions()}
	svc, err := NewService(repo, testRulesConfig(), logger.NopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = svc.StartReloader(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(0), repo.calls.Load())
}

func TestHandler_HandleRuleUpdateEvent(t *testing.T) {
	tests := []struct {
		name        string
		value       []byte
		wantReload  bool
		wantErr     bool
		wantDLQ     bool
		reloadError error
	}{
		{
			name:       "rules updated",
			value:      mustJSON(t, models.RuleUpdateEvent{EventType: models.EventTypeIntegrationRulesUpdated, Action: models.ActionUpdate, IntegrationID: "int15-3-2"}),
			wantReload: true,
		},
		{
			name:       "mapping updated",
			value:      mustJSON(t, models.RuleUpdateEvent{EventType: models.EventTypeFieldMappingUpdated, Action: models.ActionCreate}),
			wantReload: true,
		},
		{
			name:  "unrelated event",
			value: mustJSON(t, models.RuleUpdateEvent{EventType: "filtering_rules_updated"}),
		},
		{
			name:  "missing event type",
			value: []byte(`{"action":"update"}`),
		},
		{
			name:    "malformed",
			value:   []byte(`{"event_type":`),
			wantErr: true,
			wantDLQ: true,
		},
		{
			name:        "reload fails",
			value:       mustJSON(t, models.RuleUpdateEvent{EventType: models.EventTypeIntegrationRulesUpdated, Action: models.ActionReload}),
			wantReload:  true,
			wantErr:     true,
			reloadError: errors.New("database down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reloader := &fakeReloader{err: tt.reloadError}
			h := NewHandler(reloader, logger.NopLogger())

			err := h.HandleRuleUpdateEvent(context.Background(), broker.Message{Key: "k", Value: tt.value})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			_, isDLQ := broker.AsDeadLetter(err)
			assert.Equal(t, tt.wantDLQ, isDLQ)
			assert.Equal(t, tt.wantReload, reloader.calls > 0)
		})
	}
}

type fakeReloader struct {
	calls int
	err   error
}

func (r *fakeReloader) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	r.calls++
	return r.err
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
