package models

import (
	"time"

	"github.com/google/uuid"
)

type ValidationRequestBuilder struct {
	request *ValidationRequest
}

func NewValidationRequestBuilder() *ValidationRequestBuilder {
	return &ValidationRequestBuilder{
		request: &ValidationRequest{},
	}
}

func (b *ValidationRequestBuilder) WithRequestID(id string) *ValidationRequestBuilder {
	b.request.RequestID = id
	return b
}

func (b *ValidationRequestBuilder) WithTransactionID(id string) *ValidationRequestBuilder {
	b.request.TransactionID = id
	return b
}

func (b *ValidationRequestBuilder) WithIntegrations(sourceID, destinationID string) *ValidationRequestBuilder {
	b.request.SourceIntegrationID = sourceID
	b.request.DestinationIntegrationID = destinationID
	return b
}

func (b *ValidationRequestBuilder) WithPayloads(source, destination Value) *ValidationRequestBuilder {
	b.request.SourcePayload = source
	b.request.DestinationPayload = destination
	return b
}

func (b *ValidationRequestBuilder) WithEventTimes(src, dest time.Time) *ValidationRequestBuilder {
	b.request.SrcEventTime = &src
	b.request.DestEventTime = &dest
	return b
}

func (b *ValidationRequestBuilder) WithIngest(ingest bool) *ValidationRequestBuilder {
	b.request.Ingest = &ingest
	return b
}

func (b *ValidationRequestBuilder) Build() *ValidationRequest {
	if b.request.RequestID == "" {
		b.request.RequestID = uuid.New().String()
	}
	return b.request
}
