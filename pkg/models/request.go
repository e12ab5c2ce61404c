package models

import "time"

// ValidationRequest asks for one source/destination pair to be validated and,
// when Ingest is set, reported as a business event. It is the message format of
// the Kafka input topic and the body of the events API.
type ValidationRequest struct {
	RequestID                string     `json:"requestId,omitempty"`
	TransactionID            string     `json:"transactionId,omitempty"`
	SourceIntegrationID      string     `json:"sourceIntegrationId"`
	DestinationIntegrationID string     `json:"destinationIntegrationId"`
	SourcePayload            Value      `json:"sourcePayload"`
	DestinationPayload       Value      `json:"destinationPayload"`
	SrcEventTime             *time.Time `json:"srcEventTime,omitempty"`
	DestEventTime            *time.Time `json:"destEventTime,omitempty"`
	Ingest                   *bool      `json:"ingest,omitempty"`
}

// ShouldIngest defaults to true when the flag is not set.
func (r *ValidationRequest) ShouldIngest() bool {
	return r.Ingest == nil || *r.Ingest
}

// ResolveTransactionID prefers the explicit id, then the source wrapper's id,
// then the destination wrapper's id.
func (r *ValidationRequest) ResolveTransactionID() string {
	if r.TransactionID != "" {
		return r.TransactionID
	}
	for _, payload := range []Value{r.SourcePayload, r.DestinationPayload} {
		if w, ok := ParseWrapper(payload); ok && w.TransactionID != "" {
			return w.TransactionID
		}
	}
	return ""
}
