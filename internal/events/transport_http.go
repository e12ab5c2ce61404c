package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"soxguard/internal/constants"
	"soxguard/pkg/models"
	"soxguard/pkg/tracing"
)

const maxErrorBodyBytes = 512

// HTTPTransport posts envelopes to a business events ingest endpoint.
type HTTPTransport struct {
	client   *http.Client
	endpoint string
	token    string
}

// NewHTTPTransport wraps client with trace propagation. A nil client uses a
// default one with the service's HTTP timeout.
func NewHTTPTransport(client *http.Client, endpoint, token string) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	return &HTTPTransport{
		client:   tracing.HTTPClient(client),
		endpoint: endpoint,
		token:    token,
	}
}

func (t *HTTPTransport) Name() string {
	return constants.TransportHTTP
}

func (t *HTTPTransport) Send(ctx context.Context, event models.CloudEvent) (Ack, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return Ack{}, fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("failed to create ingest request: %w", err)
	}
	req.Header.Set("Content-Type", models.ContentTypeCloudEvent)
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Ack{}, fmt.Errorf("failed to post event to %s: %w", t.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return Ack{}, &TransportError{
			Status:     resp.Status,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("ingest endpoint returned %s: %s", resp.Status, bytes.TrimSpace(snippet)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return Ack{
		Status:  StatusAccepted,
		Message: fmt.Sprintf("event %s accepted with %s", event.ID, resp.Status),
	}, nil
}
