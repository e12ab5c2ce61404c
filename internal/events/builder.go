package events

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"soxguard/internal/constants"
	"soxguard/internal/validation"
	"soxguard/pkg/models"
)

// DefaultMaxDataBytes bounds sourceData and destinationData of an event.
const DefaultMaxDataBytes = constants.DefaultMaxDataBytes

// EventContext is everything the builder needs for one envelope.
type EventContext struct {
	EventID       string
	Time          time.Time
	TransactionID string
	Validation    validation.PairValidationResult
	SrcEventTime  time.Time
	DestEventTime time.Time
	// Payloads may be wrappers; their content is serialized.
	SourcePayload      models.Value
	DestinationPayload models.Value
}

// BuildResult is an envelope with the truncation flags of its data copies.
type BuildResult struct {
	Event                    models.CloudEvent
	SourceDataTruncated      bool
	DestinationDataTruncated bool
}

type Builder struct {
	source       string
	maxDataBytes int
}

// NewBuilder returns a builder stamping events with source. maxDataBytes of
// zero or less selects DefaultMaxDataBytes.
func NewBuilder(source string, maxDataBytes int) *Builder {
	if source == "" {
		source = constants.EventSource
	}
	if maxDataBytes <= 0 {
		maxDataBytes = DefaultMaxDataBytes
	}
	return &Builder{source: source, maxDataBytes: maxDataBytes}
}

func (b *Builder) MaxDataBytes() int {
	return b.maxDataBytes
}

// ToCloudEvent builds the envelope. The type is "Error" exactly when the
// validation result carries errors; error fields come from the first one.
func (b *Builder) ToCloudEvent(ec EventContext) (BuildResult, error) {
	sourceData, srcTruncated, err := b.serialize(ec.SourcePayload)
	if err != nil {
		return BuildResult{}, err
	}
	destinationData, dstTruncated, err := b.serialize(ec.DestinationPayload)
	if err != nil {
		return BuildResult{}, err
	}

	id := ec.EventID
	if id == "" {
		id = uuid.New().String()
	}

	data := models.BusinessEventData{
		TransactionID:            ec.TransactionID,
		SourceIntegrationID:      ec.Validation.SourceIntegrationID,
		DestinationIntegrationID: ec.Validation.DestinationIntegrationID,
		SrcEventTime:             ec.SrcEventTime.UTC(),
		DestEventTime:            ec.DestEventTime.UTC(),
		SourceData:               sourceData,
		DestinationData:          destinationData,
	}

	eventType := models.EventTypeOK
	if len(ec.Validation.Errors) > 0 {
		eventType = models.EventTypeError
		first := ec.Validation.Errors[0]
		data.ErrorType = string(first.Type)
		data.ErrorSubType = first.SubType
		data.ErrorSummary = first.Message
	}

	return BuildResult{
		Event: models.CloudEvent{
			SpecVersion:     models.CloudEventSpecVersion,
			ID:              id,
			Source:          b.source,
			Type:            eventType,
			Time:            ec.Time.UTC(),
			DataContentType: models.ContentTypeJSON,
			Data:            data,
		},
		SourceDataTruncated:      srcTruncated,
		DestinationDataTruncated: dstTruncated,
	}, nil
}

func (b *Builder) serialize(payload models.Value) (string, bool, error) {
	encoded, err := models.UnwrapContent(payload).Encode()
	if err != nil {
		return "", false, err
	}
	data, truncated := Truncate(encoded, b.maxDataBytes)
	return string(data), truncated, nil
}

// Truncate shortens data to at most limit bytes. The cut never splits a UTF-8
// sequence or a JSON escape sequence, so the result stays well-formed text.
func Truncate(data []byte, limit int) ([]byte, bool) {
	if len(data) <= limit {
		return data, false
	}
	if limit <= 0 {
		return data[:0], true
	}
	return data[:safeCut(data, limit)], true
}

// safeCut returns the greatest token boundary not after limit. A token is a
// JSON escape (`\x` or `\uXXXX`) or one UTF-8 encoded rune.
func safeCut(data []byte, limit int) int {
	i := 0
	for i < len(data) {
		size := tokenSize(data[i:])
		if i+size > limit {
			break
		}
		i += size
	}
	return i
}

func tokenSize(b []byte) int {
	if b[0] == '\\' {
		n := 2
		if len(b) > 1 && b[1] == 'u' {
			n = 6
		}
		if n > len(b) {
			n = len(b)
		}
		return n
	}
	_, size := utf8.DecodeRune(b)
	return size
}
