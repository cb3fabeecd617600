package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// Payload is the JSON body posted to a monitor callback.
type Payload struct {
	Monitor domain.MonitorID `json:"monitor"`
	Names   []domain.Name    `json:"names"`
	SentAt  time.Time        `json:"sent_at"`
}

// Target posts every verdict to a monitor's HTTP callback.
type Target struct {
	monitor  domain.MonitorID
	endpoint string
	client   *http.Client
}

// NewTarget validates endpoint and returns a target for monitor. A nil
// client gets a traced client with a short timeout.
func NewTarget(monitor domain.MonitorID, endpoint string, client *http.Client) (*Target, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("callback url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("callback url %q: want absolute http(s) url", endpoint)
	}
	if client == nil {
		client = &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Target{monitor: monitor, endpoint: u.String(), client: client}, nil
}

// Endpoint returns the callback url.
func (t *Target) Endpoint() string { return t.endpoint }

// SetMaliciousPrefixes posts the full set. Any non-2xx answer is an error.
func (t *Target) SetMaliciousPrefixes(ctx context.Context, names domain.NameSet) error {
	body, err := json.Marshal(Payload{Monitor: t.monitor, Names: names.Sorted(), SentAt: time.Now()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback %s answered %s", t.endpoint, resp.Status)
	}
	return nil
}

var _ ports.NotificationTarget = (*Target)(nil)
