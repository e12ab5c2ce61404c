package models

import (
	"strings"
	"time"
)

// WrapperLayout names the keys of one wrapper shape. Two shapes are in use:
// the workflow library's `sox_*` keys and the plain camelCase form.
type WrapperLayout struct {
	IntegrationKey string
	TransactionKey string
	TimestampKey   string
	ContentKey     string
	ContentSuccess string
	ContentPayload string
}

var (
	SOXWrapperLayout = WrapperLayout{
		IntegrationKey: "sox_integration",
		TransactionKey: "sox_transaction_id",
		TimestampKey:   "sox_transaction_timestamp",
		ContentKey:     "sox_data",
		ContentSuccess: "success",
		ContentPayload: "payload",
	}

	PlainWrapperLayout = WrapperLayout{
		IntegrationKey: "integrationId",
		TransactionKey: "transactionId",
		TimestampKey:   "transactionTimestamp",
		ContentKey:     "content",
		ContentSuccess: "success",
		ContentPayload: "payload",
	}
)

// ContentField is the failure path of a key nested in the content object.
func (l WrapperLayout) ContentField(key string) string {
	return l.ContentKey + "." + key
}

// IntegrationWrapper is one side's view of a business transaction.
type IntegrationWrapper struct {
	IntegrationID        string
	TransactionID        string
	TransactionTimestamp time.Time
	Success              bool
	Payload              Value
}

func NewIntegrationWrapper(integrationID, transactionID string, ts time.Time, success bool, payload Value) IntegrationWrapper {
	return IntegrationWrapper{
		IntegrationID:        integrationID,
		TransactionID:        transactionID,
		TransactionTimestamp: ts,
		Success:              success,
		Payload:              payload,
	}
}

// Value renders the wrapper as a tree in the given layout.
func (w IntegrationWrapper) Value(layout WrapperLayout) Value {
	success := 0.0
	if w.Success {
		success = 1
	}
	return Object(map[string]Value{
		layout.IntegrationKey: String(w.IntegrationID),
		layout.TransactionKey: String(w.TransactionID),
		layout.TimestampKey:   String(w.TransactionTimestamp.UTC().Format(time.RFC3339Nano)),
		layout.ContentKey: Object(map[string]Value{
			layout.ContentSuccess: Number(success),
			layout.ContentPayload: w.Payload,
		}),
	})
}

func (w IntegrationWrapper) MarshalJSON() ([]byte, error) {
	return w.Value(SOXWrapperLayout).Encode()
}

// DetectWrapper reports which layout v uses. A value is a wrapper when it is an
// object whose content key holds an object carrying a payload key.
func DetectWrapper(v Value) (WrapperLayout, bool) {
	for _, layout := range []WrapperLayout{SOXWrapperLayout, PlainWrapperLayout} {
		content, ok := v.Field(layout.ContentKey)
		if !ok || content.Kind() != KindObject {
			continue
		}
		if _, ok := content.Field(layout.ContentPayload); ok {
			return layout, true
		}
	}
	return WrapperLayout{}, false
}

// UnwrapContent returns content.payload of a wrapper, or v itself when it is
// a bare business payload.
func UnwrapContent(v Value) Value {
	layout, ok := DetectWrapper(v)
	if !ok {
		return v
	}
	content, _ := v.Field(layout.ContentKey)
	payload, _ := content.Field(layout.ContentPayload)
	return payload
}

// ParseWrapper extracts the typed wrapper. Fields that are absent or malformed
// are left zero; structural checks belong to the validator.
func ParseWrapper(v Value) (IntegrationWrapper, bool) {
	layout, ok := DetectWrapper(v)
	if !ok {
		return IntegrationWrapper{}, false
	}

	var w IntegrationWrapper
	if s, ok := fieldString(v, layout.IntegrationKey); ok {
		w.IntegrationID = s
	}
	if s, ok := fieldString(v, layout.TransactionKey); ok {
		w.TransactionID = s
	}
	if ts, ok := v.Field(layout.TimestampKey); ok {
		if t, ok := ParseTimestamp(ts); ok {
			w.TransactionTimestamp = t
		}
	}
	content, _ := v.Field(layout.ContentKey)
	if n, ok := content.Field(layout.ContentSuccess); ok {
		if f, ok := n.AsNumber(); ok {
			w.Success = f == 1
		} else if b, ok := n.AsBool(); ok {
			w.Success = b
		}
	}
	w.Payload, _ = content.Field(layout.ContentPayload)
	return w, true
}

func fieldString(v Value, key string) (string, bool) {
	f, ok := v.Field(key)
	if !ok {
		return "", false
	}
	return f.AsString()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 strings, bare dates and epoch milliseconds.
func ParseTimestamp(v Value) (time.Time, bool) {
	if ms, ok := v.AsNumber(); ok {
		if ms < 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	s, ok := v.AsString()
	if !ok {
		return time.Time{}, false
	}
	return ParseTimestampString(s)
}

func ParseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
