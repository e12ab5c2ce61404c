package rules

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"soxguard/internal/constants"
	"soxguard/pkg/metrics"
	"soxguard/pkg/migrations"
)

type MongoRepository struct {
	ruleSets *mongo.Collection
	mappings *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		ruleSets: db.Collection(migrations.RuleSetsCollection),
		mappings: db.Collection(migrations.MappingsCollection),
	}
}

func (r *MongoRepository) Load(ctx context.Context) (Definitions, error) {
	start := time.Now()
	defs, err := r.load(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(constants.ServiceName, constants.RuleSourceMongoDB, "load_rules", status)
	metrics.ObserveDatabaseQueryDuration(constants.ServiceName, constants.RuleSourceMongoDB, "load_rules", time.Since(start))
	return defs, err
}

func (r *MongoRepository) load(ctx context.Context) (Definitions, error) {
	var defs Definitions

	cursor, err := r.ruleSets.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return Definitions{}, fmt.Errorf("failed to query rule sets: %w", err)
	}
	if err := cursor.All(ctx, &defs.Integrations); err != nil {
		return Definitions{}, fmt.Errorf("failed to decode rule sets: %w", err)
	}

	cursor, err = r.mappings.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{
		{Key: "source", Value: 1},
		{Key: "destination", Value: 1},
	}))
	if err != nil {
		return Definitions{}, fmt.Errorf("failed to query mappings: %w", err)
	}
	if err := cursor.All(ctx, &defs.Mappings); err != nil {
		return Definitions{}, fmt.Errorf("failed to decode mappings: %w", err)
	}

	return defs, nil
}

// Replace swaps the stored rule set for defs. It is not atomic: a concurrent
// Load may observe a partial set.
func (r *MongoRepository) Replace(ctx context.Context, defs Definitions) error {
	if _, err := r.mappings.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}
	if _, err := r.ruleSets.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear rule sets: %w", err)
	}

	now := time.Now().UTC()
	if len(defs.Integrations) > 0 {
		docs := make([]interface{}, 0, len(defs.Integrations))
		for _, def := range defs.Integrations {
			docs = append(docs, ruleSetDocument{IntegrationDefinition: def, UpdatedAt: now})
		}
		if _, err := r.ruleSets.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert rule sets: %w", err)
		}
	}

	if len(defs.Mappings) > 0 {
		docs := make([]interface{}, 0, len(defs.Mappings))
		for _, md := range defs.Mappings {
			docs = append(docs, mappingDocument{MappingDefinition: md, UpdatedAt: now})
		}
		if _, err := r.mappings.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert mappings: %w", err)
		}
	}

	return nil
}

type ruleSetDocument struct {
	IntegrationDefinition `bson:",inline"`
	UpdatedAt             time.Time `bson:"updated_at"`
}

type mappingDocument struct {
	MappingDefinition `bson:",inline"`
	UpdatedAt         time.Time `bson:"updated_at"`
}
