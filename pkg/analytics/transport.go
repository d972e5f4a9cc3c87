package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formstats/components/formstats"
)

// Transport kinds accepted by NewTransport.
const (
	TransportGoogle = "google"
	TransportHTTP   = "http"
	TransportMock   = "mock"
)

// ErrUnknownTransport is returned for a kind NewTransport does not know.
var ErrUnknownTransport = errors.New("analytics: unknown transport")

// TransportConfig selects and configures a report transport.
type TransportConfig struct {
	Kind            string
	CredentialsFile string
	Endpoint        string
	APIKey          string
	// Now anchors the mock fixtures. Defaults to time.Now.
	Now func() time.Time
}

// NewTransport builds the transport named by cfg.Kind.
func NewTransport(ctx context.Context, cfg TransportConfig) (formstats.ReportTransport, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case TransportGoogle, "":
		client, err := NewGoogleClient(ctx, GoogleConfig{
			CredentialsFile: cfg.CredentialsFile,
			Endpoint:        cfg.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case TransportHTTP:
		client, err := NewHTTPClient(HTTPConfig{BaseURL: cfg.Endpoint, APIKey: cfg.APIKey})
		if err != nil {
			return nil, err
		}
		return client, nil
	case TransportMock:
		now := cfg.Now
		if now == nil {
			now = time.Now
		}
		return NewMockClient(DemoData(now())), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Kind)
	}
}
