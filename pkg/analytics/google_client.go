package analytics

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/analyticsreporting/v4"
	"google.golang.org/api/option"

	"github.com/goliatone/go-formstats/components/formstats"
)

// GoogleConfig configures the Reporting API client. Credentials are tried
// in field order; with none set, application default credentials are used.
type GoogleConfig struct {
	HTTPClient      *http.Client
	TokenSource     oauth2.TokenSource
	CredentialsJSON []byte
	CredentialsFile string
	Endpoint        string
}

// GoogleClient sends report batches through the Analytics Reporting v4 SDK.
type GoogleClient struct {
	service *analyticsreporting.Service
}

// NewGoogleClient builds an SDK-backed client scoped to read-only analytics.
func NewGoogleClient(ctx context.Context, cfg GoogleConfig) (*GoogleClient, error) {
	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.TokenSource != nil:
		opts = append(opts, option.WithTokenSource(cfg.TokenSource))
	default:
		creds, err := loadCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	service, err := analyticsreporting.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("analytics: create reporting service: %w", err)
	}
	return &GoogleClient{service: service}, nil
}

func loadCredentials(ctx context.Context, cfg GoogleConfig) (*google.Credentials, error) {
	data := cfg.CredentialsJSON
	if len(data) == 0 && cfg.CredentialsFile != "" {
		raw, err := os.ReadFile(cfg.CredentialsFile) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("analytics: read credentials %s: %w", cfg.CredentialsFile, err)
		}
		data = raw
	}
	if len(data) == 0 {
		creds, err := google.FindDefaultCredentials(ctx, analyticsreporting.AnalyticsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("analytics: default credentials: %w", err)
		}
		return creds, nil
	}
	creds, err := google.CredentialsFromJSON(ctx, data, analyticsreporting.AnalyticsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("analytics: parse credentials: %w", err)
	}
	return creds, nil
}

// BatchGet issues one reports:batchGet call for every descriptor.
func (c *GoogleClient) BatchGet(ctx context.Context, descriptors []formstats.ReportDescriptor) (formstats.BatchResponse, error) {
	resp, err := c.service.Reports.BatchGet(toReportsRequest(descriptors)).Context(ctx).Do()
	if err != nil {
		return formstats.BatchResponse{}, fmt.Errorf("analytics: batch get: %w", err)
	}
	return fromReportsResponse(resp), nil
}
