package models

import "time"

const (
	CloudEventSpecVersion = "1.0"
	ContentTypeJSON       = "application/json"
	ContentTypeCloudEvent = "application/cloudevent+json"

	EventTypeOK    = "OK"
	EventTypeError = "Error"
)

// CloudEvent is the business event envelope handed to the ingestion transport.
type CloudEvent struct {
	SpecVersion     string            `json:"specversion"`
	ID              string            `json:"id"`
	Source          string            `json:"source"`
	Type            string            `json:"type"`
	Time            time.Time         `json:"time"`
	DataContentType string            `json:"datacontenttype"`
	Data            BusinessEventData `json:"data"`
}

type BusinessEventData struct {
	TransactionID            string    `json:"transactionId"`
	SourceIntegrationID      string    `json:"sourceIntegrationId"`
	DestinationIntegrationID string    `json:"destinationIntegrationId"`
	SrcEventTime             time.Time `json:"srcEventTime"`
	DestEventTime            time.Time `json:"destEventTime"`
	ErrorType                string    `json:"errorType,omitempty"`
	ErrorSubType             string    `json:"errorSubType,omitempty"`
	ErrorSummary             string    `json:"errorSummary,omitempty"`
	SourceData               string    `json:"sourceData"`
	DestinationData          string    `json:"destinationData"`
}

func (e CloudEvent) IsError() bool {
	return e.Type == EventTypeError
}
