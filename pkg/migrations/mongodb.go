package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RuleSetsCollection = "integration_rule_sets"
	MappingsCollection = "integration_mappings"
)

// EnsureRuleCollections creates the indexes of the rule store collections.
// Collections themselves are created on first insert.
func EnsureRuleCollections(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		RuleSetsCollection: {
			{
				Keys:    bson.D{{Key: "updated_at", Value: -1}},
				Options: options.Index().SetName("idx_integration_rule_sets_updated_at"),
			},
		},
		MappingsCollection: {
			{
				Keys:    bson.D{{Key: "source", Value: 1}, {Key: "destination", Value: 1}},
				Options: options.Index().SetName("idx_integration_mappings_pair").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "destination", Value: 1}},
				Options: options.Index().SetName("idx_integration_mappings_destination"),
			},
		},
	}

	for _, name := range []string{RuleSetsCollection, MappingsCollection} {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes[name]); err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("failed to create indexes on %s: %w", name, err)
			}
		}
	}

	return nil
}
