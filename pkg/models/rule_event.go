package models

import "time"

// RuleUpdateEvent announces a change to the rule store. Consumers reload the
// whole snapshot; IntegrationID is informational.
type RuleUpdateEvent struct {
	EventType     string                 `json:"event_type"`
	Action        string                 `json:"action"`
	IntegrationID string                 `json:"integration_id,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	ChangedBy     string                 `json:"changed_by,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeIntegrationRulesUpdated = "integration_rules_updated"
	EventTypeFieldMappingUpdated     = "field_mapping_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionReload = "reload"
)
