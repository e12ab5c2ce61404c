package rules

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"soxguard/internal/constants"
	"soxguard/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the rule store schema to db.
func Migrate(db *sql.DB) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Load(ctx context.Context) (Definitions, error) {
	start := time.Now()
	defs, err := r.load(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(constants.ServiceName, constants.RuleSourcePostgres, "load_rules", status)
	metrics.ObserveDatabaseQueryDuration(constants.ServiceName, constants.RuleSourcePostgres, "load_rules", time.Since(start))
	return defs, err
}

func (r *PostgresRepository) load(ctx context.Context) (Definitions, error) {
	integrations, err := r.loadIntegrations(ctx)
	if err != nil {
		return Definitions{}, err
	}
	mappings, err := r.loadMappings(ctx)
	if err != nil {
		return Definitions{}, err
	}
	return Definitions{Integrations: integrations, Mappings: mappings}, nil
}

func (r *PostgresRepository) loadIntegrations(ctx context.Context) ([]IntegrationDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description
		FROM integrations
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query integrations: %w", err)
	}
	defer rows.Close()

	var integrations []IntegrationDefinition
	index := make(map[string]int)
	for rows.Next() {
		var def IntegrationDefinition
		if err := rows.Scan(&def.ID, &def.Description); err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		index[def.ID] = len(integrations)
		integrations = append(integrations, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	ruleRows, err := r.db.QueryContext(ctx, `
		SELECT integration_id, field_path, required, value_type, predicate
		FROM integration_rules
		ORDER BY integration_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query integration rules: %w", err)
	}
	defer ruleRows.Close()

	for ruleRows.Next() {
		var integrationID string
		var rule RuleDefinition
		if err := ruleRows.Scan(&integrationID, &rule.Field, &rule.Required, &rule.Type, &rule.Predicate); err != nil {
			return nil, fmt.Errorf("failed to scan integration rule: %w", err)
		}
		i, ok := index[integrationID]
		if !ok {
			continue
		}
		integrations[i].Rules = append(integrations[i].Rules, rule)
	}
	if err := ruleRows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return integrations, nil
}

func (r *PostgresRepository) loadMappings(ctx context.Context) ([]MappingDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_integration_id, destination_integration_id, description
		FROM integration_mappings
		ORDER BY source_integration_id, destination_integration_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query integration mappings: %w", err)
	}
	defer rows.Close()

	var mappings []MappingDefinition
	index := make(map[pairKey]int)
	for rows.Next() {
		var md MappingDefinition
		if err := rows.Scan(&md.Source, &md.Destination, &md.Description); err != nil {
			return nil, fmt.Errorf("failed to scan integration mapping: %w", err)
		}
		index[pairKey{source: md.Source, destination: md.Destination}] = len(mappings)
		mappings = append(mappings, md)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	fieldRows, err := r.db.QueryContext(ctx, `
		SELECT source_integration_id, destination_integration_id, source_path, destination_path, compare, expression, required
		FROM field_mappings
		ORDER BY source_integration_id, destination_integration_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query field mappings: %w", err)
	}
	defer fieldRows.Close()

	for fieldRows.Next() {
		var key pairKey
		var fd FieldMappingDefinition
		if err := fieldRows.Scan(&key.source, &key.destination, &fd.Source, &fd.Destination, &fd.Compare, &fd.Expression, &fd.Required); err != nil {
			return nil, fmt.Errorf("failed to scan field mapping: %w", err)
		}
		i, ok := index[key]
		if !ok {
			i = len(mappings)
			index[key] = i
			mappings = append(mappings, MappingDefinition{Source: key.source, Destination: key.destination})
		}
		mappings[i].Fields = append(mappings[i].Fields, fd)
	}
	if err := fieldRows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return mappings, nil
}

// Replace swaps the stored rule set for defs in one transaction.
func (r *PostgresRepository) Replace(ctx context.Context, defs Definitions) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM field_mappings`,
		`DELETE FROM integration_mappings`,
		`DELETE FROM integration_rules`,
		`DELETE FROM integrations`,
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear rule tables: %w", err)
		}
	}

	for _, def := range defs.Integrations {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO integrations (id, description) VALUES ($1, $2)`,
			def.ID, def.Description,
		); err != nil {
			return fmt.Errorf("failed to insert integration %s: %w", def.ID, err)
		}
		for pos, rule := range def.Rules {
			kind := rule.Type
			if kind == "" {
				kind = string(KindAny)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO integration_rules (integration_id, position, field_path, required, value_type, predicate)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				def.ID, pos, rule.Field, rule.Required, kind, rule.Predicate,
			); err != nil {
				return fmt.Errorf("failed to insert rule %s[%d]: %w", def.ID, pos, err)
			}
		}
	}

	for _, md := range defs.Mappings {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO integration_mappings (source_integration_id, destination_integration_id, description)
			 VALUES ($1, $2, $3)`,
			md.Source, md.Destination, md.Description,
		); err != nil {
			return fmt.Errorf("failed to insert mapping %s->%s: %w", md.Source, md.Destination, err)
		}
		for pos, fd := range md.Fields {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO field_mappings (source_integration_id, destination_integration_id, position, source_path, destination_path, compare, expression, required)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				md.Source, md.Destination, pos, fd.Source, fd.Destination, fd.Compare, fd.Expression, fd.Required,
			); err != nil {
				return fmt.Errorf("failed to insert field mapping %s->%s[%d]: %w", md.Source, md.Destination, pos, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule set: %w", err)
	}
	return nil
}
